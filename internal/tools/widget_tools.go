package tools

import (
	"fmt"

	"github.com/google/uuid"
)

var widgetTypes = map[string]bool{
	"metronome": true,
	"tuner":     true,
	"notation":  true,
	"fretboard": true,
	"keyboard":  true,
}

// WidgetCollection owns the tools that drive interactive lesson widgets in
// the client UI. The widgets themselves live client-side; these tools only
// emit instructions the transport forwards.
type WidgetCollection struct {
	baseCollection
}

// NewWidgetCollection creates the widget tool collection
func NewWidgetCollection() *WidgetCollection {
	c := &WidgetCollection{}
	c.name = "widget"
	c.tools = []*Tool{
		{
			Name:        "show_widget",
			Description: "Show an interactive widget to the student (metronome, tuner, notation, fretboard, keyboard)",
			Category:    CategoryWidget,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"widget": map[string]interface{}{
						"type":        "string",
						"description": "Widget type: 'metronome', 'tuner', 'notation', 'fretboard', or 'keyboard'",
					},
					"settings": map[string]interface{}{
						"type":        "object",
						"description": "Widget-specific settings (e.g., {\"bpm\": 80} for the metronome)",
					},
				},
				"required": []string{"widget"},
			},
			Guidance: "Prefer a metronome widget when the student struggles with timing, " +
				"and a tuner when intonation is the problem.",
			Execute: executeShowWidget,
		},
		{
			Name:        "update_widget",
			Description: "Update the settings of a widget that is already visible",
			Category:    CategoryWidget,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"widget_id": map[string]interface{}{
						"type":        "string",
						"description": "ID returned by show_widget",
					},
					"settings": map[string]interface{}{
						"type":        "object",
						"description": "Settings to change",
					},
				},
				"required": []string{"widget_id", "settings"},
			},
			Execute: executeUpdateWidget,
		},
		{
			Name:        "close_widget",
			Description: "Close a visible widget",
			Category:    CategoryWidget,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"widget_id": map[string]interface{}{
						"type":        "string",
						"description": "ID returned by show_widget",
					},
				},
				"required": []string{"widget_id"},
			},
			Execute: executeCloseWidget,
		},
	}
	return c
}

func executeShowWidget(args map[string]interface{}) (map[string]interface{}, error) {
	widget := stringArg(args, "widget", "")
	if !widgetTypes[widget] {
		return nil, fmt.Errorf("unknown widget type %q, use metronome, tuner, notation, fretboard or keyboard", widget)
	}
	settings, _ := args["settings"].(map[string]interface{})

	result := map[string]interface{}{
		"status":    "widget_shown",
		"widget":    widget,
		"widget_id": uuid.New().String(),
	}
	if settings != nil {
		result["settings"] = settings
	}
	return result, nil
}

func executeUpdateWidget(args map[string]interface{}) (map[string]interface{}, error) {
	widgetID := stringArg(args, "widget_id", "")
	if widgetID == "" {
		return nil, fmt.Errorf("widget_id is required")
	}
	settings, ok := args["settings"].(map[string]interface{})
	if !ok || len(settings) == 0 {
		return nil, fmt.Errorf("settings must be a non-empty object")
	}
	return map[string]interface{}{
		"status":    "widget_updated",
		"widget_id": widgetID,
		"settings":  settings,
	}, nil
}

func executeCloseWidget(args map[string]interface{}) (map[string]interface{}, error) {
	widgetID := stringArg(args, "widget_id", "")
	if widgetID == "" {
		return nil, fmt.Errorf("widget_id is required")
	}
	return map[string]interface{}{
		"status":    "widget_closed",
		"widget_id": widgetID,
	}, nil
}
