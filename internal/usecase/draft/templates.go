package draft

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

type templateSource struct {
	subject string
	body    string
}

var sources = map[entities.DraftType]templateSource{
	entities.DraftTypeEmailProposal: {
		subject: `{% if attempt > 1 %}New times for {{ title }}{% else %}{{ title }}{% endif %}`,
		body: `Hi {{ contact_name | first_name | default: "there" }},

{% if attempt > 1 %}Let's find a new time for our {{ duration }}-minute {{ meeting_type }}.{% else %}I'd love to set up a {{ duration }}-minute {{ meeting_type }}.{% endif %} Would any of these work for you?

{% for t in times %}{{ forloop.index }}. {{ t }}
{% endfor %}
Just reply with the option that suits you, or suggest another time.

{{ sender_name }}`,
	},
	entities.DraftTypeEmailFollowUp: {
		subject: `Re: {{ title }}`,
		body: `Hi {{ contact_name | first_name | default: "there" }},

Just checking in on my note about {{ title }}.{% if has_times %} Do any of these still work?

{% for t in times %}{{ forloop.index }}. {{ t }}
{% endfor %}{% endif %}
Happy to find another time if these don't suit.

{{ sender_name }}`,
	},
	entities.DraftTypeEmailReminder: {
		subject: `Reminder: {{ title }} on {{ confirmed }}`,
		body: `Hi {{ contact_name | first_name | default: "there" }},

A quick reminder that we're meeting on {{ confirmed }} for {{ title }}.{% if has_link %}

Join here: {{ meeting_link }}{% endif %}

See you then,
{{ sender_name }}`,
	},
	entities.DraftTypeEmailResponse: {
		subject: `Re: {{ title }}`,
		body: `Hi {{ contact_name | first_name | default: "there" }},

Thanks for asking{% if has_question %} "{{ question }}"{% endif %}. Let me confirm the details and get back to you shortly.{% if has_times %}

In the meantime, these times are still open:

{% for t in times %}{{ forloop.index }}. {{ t }}
{% endfor %}{% endif %}

{{ sender_name }}`,
	},
	entities.DraftTypeAvailabilityCheck: {
		subject: `Re: {{ title }}`,
		body: `Hi {{ contact_name | first_name | default: "there" }},

Thanks for the suggestion. To confirm, does this work for you?

{% for t in times %}- {{ t }}
{% endfor %}
Once you confirm I'll send over a calendar invite.

{{ sender_name }}`,
	},
}

// TemplateData is the binding set available to every draft template
type TemplateData struct {
	ContactName string
	SenderName  string
	Title       string
	MeetingType string
	Duration    int
	Times       []string
	Confirmed   string
	MeetingLink string
	Question    string
	Attempt     int
}

func (d TemplateData) bindings() map[string]interface{} {
	times := make([]interface{}, len(d.Times))
	for i, t := range d.Times {
		times[i] = t
	}
	return map[string]interface{}{
		"contact_name": d.ContactName,
		"sender_name":  d.SenderName,
		"title":        d.Title,
		"meeting_type": strings.ReplaceAll(d.MeetingType, "_", " "),
		"duration":     d.Duration,
		"times":        times,
		"has_times":    len(d.Times) > 0,
		"confirmed":    d.Confirmed,
		"meeting_link": d.MeetingLink,
		"has_link":     d.MeetingLink != "",
		"question":     d.Question,
		"has_question": d.Question != "",
		"attempt":      d.Attempt,
	}
}

// Templates renders draft subjects and bodies with Liquid
type Templates struct {
	engine   *liquid.Engine
	subjects map[entities.DraftType]*liquid.Template
	bodies   map[entities.DraftType]*liquid.Template
}

// NewTemplates parses every built-in template once
func NewTemplates() (*Templates, error) {
	engine := liquid.NewEngine()

	// First word of a name: {{ contact_name | first_name }}
	engine.RegisterFilter("first_name", func(s string) string {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	})

	t := &Templates{
		engine:   engine,
		subjects: make(map[entities.DraftType]*liquid.Template, len(sources)),
		bodies:   make(map[entities.DraftType]*liquid.Template, len(sources)),
	}
	for typ, src := range sources {
		subject, err := engine.ParseString(src.subject)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s subject: %w", typ, err)
		}
		body, err := engine.ParseString(src.body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s body: %w", typ, err)
		}
		t.subjects[typ] = subject
		t.bodies[typ] = body
	}
	return t, nil
}

// Render produces the subject and body for an email draft type
func (t *Templates) Render(typ entities.DraftType, data TemplateData) (string, string, error) {
	subjectTpl, ok := t.subjects[typ]
	if !ok {
		return "", "", fmt.Errorf("no template for draft type %s", typ)
	}
	b := data.bindings()
	subject, err := subjectTpl.RenderString(b)
	if err != nil {
		return "", "", fmt.Errorf("failed to render %s subject: %w", typ, err)
	}
	body, err := t.bodies[typ].RenderString(b)
	if err != nil {
		return "", "", fmt.Errorf("failed to render %s body: %w", typ, err)
	}
	return strings.TrimSpace(subject), strings.TrimSpace(body) + "\n", nil
}
