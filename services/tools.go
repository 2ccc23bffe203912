package services

import "recruitreach/llm"

const (
	toolCreateSequence = "create_sequence"
	toolEditSequence   = "edit_sequence"
)

var stepSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"step_number": map[string]interface{}{"type": "integer", "description": "The order of this step in the sequence"},
		"type":        map[string]interface{}{"type": "string", "enum": []string{"email", "linkedin"}, "description": "The type of message"},
		"content":     map[string]interface{}{"type": "string", "description": "The content of the message"},
		"delay_days":  map[string]interface{}{"type": "integer", "description": "Number of days after activation to send this step"},
		"step_title":  map[string]interface{}{"type": "string", "description": "The title of the step"},
	},
	"required": []string{"step_number", "type", "content", "delay_days", "step_title"},
}

var createSequenceTool = llm.Tool{
	Name:        toolCreateSequence,
	Description: "Create a new email sequence for recruitment",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title":       map[string]interface{}{"type": "string", "description": "The title of the sequence"},
			"description": map[string]interface{}{"type": "string", "description": "A detailed description of the sequence's purpose"},
			"steps":       map[string]interface{}{"type": "array", "description": "The messages to send", "items": stepSchema},
			"metadata": map[string]interface{}{
				"type":        "object",
				"description": "Additional information about the sequence",
				"properties": map[string]interface{}{
					"target_role":      map[string]interface{}{"type": "string"},
					"experience_level": map[string]interface{}{"type": "string"},
				},
			},
		},
		"required": []string{"title", "description", "steps"},
	},
}

var editSequenceTool = llm.Tool{
	Name:        toolEditSequence,
	Description: "Edit an existing sequence",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sequence_id": map[string]interface{}{"type": "string", "description": "The ID of the sequence to edit"},
			"updates": map[string]interface{}{
				"type":        "object",
				"description": "The updates to make to the sequence",
				"properties": map[string]interface{}{
					"title":       map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
					"steps":       map[string]interface{}{"type": "array", "items": stepSchema},
				},
			},
		},
		"required": []string{"updates"},
	},
}

const chatSystemPrompt = `You help recruiters create and edit outreach sequences.
When the user has given enough information for a sequence, call create_sequence.
When they want to change an existing sequence, call edit_sequence.
Otherwise ask one clarifying question at a time, for example the role, the seniority, the number of steps or the delay between messages.
Step content may use the placeholders {first_name}, {last_name}, {title}, {location} and {email}.`

const generateSystemPrompt = `You write recruiting outreach sequences. Always answer by calling create_sequence.
Step content may use the placeholders {first_name}, {last_name}, {title}, {location} and {email}.`

const editSystemPrompt = `You revise recruiting outreach sequences. Always answer by calling edit_sequence with only the fields that change.`
