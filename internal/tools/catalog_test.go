package tools

import (
	"errors"
	"testing"
)

func stubCollection(name string, toolNames ...string) *baseCollection {
	c := &baseCollection{name: name}
	for _, tn := range toolNames {
		c.tools = append(c.tools, &Tool{
			Name:        tn,
			Description: "stub",
			Category:    CategoryOther,
			Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
			Execute: func(args map[string]interface{}) (map[string]interface{}, error) {
				return map[string]interface{}{"status": "ok"}, nil
			},
		})
	}
	return c
}

func TestCatalogRegisterDuplicateFails(t *testing.T) {
	catalog := NewCatalog()
	if err := catalog.Register(stubCollection("first", "shared_tool")); err != nil {
		t.Fatal(err)
	}
	err := catalog.Register(stubCollection("second", "shared_tool"))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("err = %v, want ErrDuplicateTool", err)
	}
}

func TestCatalogRegisterValidation(t *testing.T) {
	catalog := NewCatalog()
	unnamed := stubCollection("bad", "x")
	unnamed.tools[0].Name = ""
	if err := catalog.Register(unnamed); err == nil {
		t.Error("want error for empty tool name")
	}

	noExec := stubCollection("bad2", "y")
	noExec.tools[0].Execute = nil
	if err := catalog.Register(noExec); err == nil {
		t.Error("want error for nil Execute")
	}
}

func TestCatalogCallUnknownTool(t *testing.T) {
	catalog := NewCatalog()
	result := catalog.Call("does_not_exist", nil)
	if isErr, _ := result["error"].(bool); !isErr {
		t.Fatalf("result = %v, want error payload", result)
	}
	if result["error_type"] != "unknown_tool" {
		t.Errorf("error_type = %v", result["error_type"])
	}
}

func TestCatalogInsertionOrder(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register(stubCollection("a", "alpha", "beta"))
	catalog.Register(stubCollection("b", "gamma"))

	all := catalog.AllTools()
	want := []string{"alpha", "beta", "gamma"}
	if len(all) != len(want) {
		t.Fatalf("got %d tools", len(all))
	}
	for i, tool := range all {
		if tool.Name != want[i] {
			t.Errorf("position %d = %q, want %q", i, tool.Name, want[i])
		}
	}
}

func TestCatalogSchemasByCategory(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register(NewRecordingCollection())
	catalog.Register(NewMIDICollection())

	recording := catalog.SchemasByCategory(CategoryRecording)
	if len(recording) == 0 {
		t.Fatal("no recording schemas")
	}
	for _, schema := range recording {
		fn, ok := schema["function"].(map[string]interface{})
		if !ok {
			t.Fatalf("schema missing function block: %v", schema)
		}
		if name := fn["name"].(string); name == "render_midi" {
			t.Errorf("MIDI tool %q leaked into recording category", name)
		}
	}
	if got := catalog.SchemasByCategory(CategoryOther); len(got) != 0 {
		t.Errorf("unexpected schemas for empty category: %d", len(got))
	}
}

func TestCatalogRealCollections(t *testing.T) {
	catalog := NewCatalog()
	for _, c := range []Collection{
		NewWidgetCollection(),
		NewRecordingCollection(),
		NewMIDICollection(),
	} {
		if err := catalog.Register(c); err != nil {
			t.Fatalf("Register(%s): %v", c.Name(), err)
		}
	}
	if catalog.Count() == 0 {
		t.Fatal("no tools registered")
	}
	schemas := catalog.AllSchemas()
	for _, schema := range schemas {
		if schema["type"] != "function" {
			t.Errorf("schema type = %v", schema["type"])
		}
	}
}
