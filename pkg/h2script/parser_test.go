package h2script

import (
	"strings"
	"testing"
)

func TestParser_Simple(t *testing.T) {
	input := `vtest "test name"`
	p := NewParser(strings.NewReader(input), nil, nil)

	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if root == nil {
		t.Fatal("Expected root node")
	}

	if len(root.Children) != 1 {
		t.Fatalf("Expected 1 child, got %d", len(root.Children))
	}

	vtestNode := root.Children[0]
	if vtestNode.Type != "vtest" {
		t.Errorf("Expected type 'vtest', got '%s'", vtestNode.Type)
	}

	if vtestNode.Name != "test name" {
		t.Errorf("Expected name 'test name', got '%s'", vtestNode.Name)
	}
}

func TestParser_CommandWithArgs(t *testing.T) {
	input := `conn c1 -mode active`
	p := NewParser(strings.NewReader(input), nil, nil)

	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if len(root.Children) != 1 {
		t.Fatalf("Expected 1 child, got %d", len(root.Children))
	}

	cmd := root.Children[0]
	if cmd.Type != "command" {
		t.Errorf("Expected type 'command', got '%s'", cmd.Type)
	}

	if cmd.Name != "conn" {
		t.Errorf("Expected name 'conn', got '%s'", cmd.Name)
	}

	if len(cmd.Args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(cmd.Args))
	}

	if cmd.Args[0] != "c1" {
		t.Errorf("Expected arg 'c1', got '%s'", cmd.Args[0])
	}

	if cmd.Args[1] != "-mode" {
		t.Errorf("Expected arg '-mode', got '%s'", cmd.Args[1])
	}
}

func TestParser_Block(t *testing.T) {
	input := `conn c1 {
	txreq
	expect
}`
	p := NewParser(strings.NewReader(input), nil, nil)

	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if len(root.Children) != 1 {
		t.Fatalf("Expected 1 child, got %d", len(root.Children))
	}

	conn := root.Children[0]
	if conn.Name != "conn" {
		t.Errorf("Expected name 'conn', got '%s'", conn.Name)
	}

	if len(conn.Children) != 2 {
		t.Fatalf("Expected 2 children in block, got %d", len(conn.Children))
	}

	if conn.Children[0].Name != "txreq" {
		t.Errorf("Expected first child 'txreq', got '%s'", conn.Children[0].Name)
	}

	if conn.Children[1].Name != "expect" {
		t.Errorf("Expected second child 'expect', got '%s'", conn.Children[1].Name)
	}
}

func TestParser_Comments(t *testing.T) {
	input := `# This is a comment
vtest "test"
# Another comment
conn c1 -mode active  # inline comment`
	p := NewParser(strings.NewReader(input), nil, nil)

	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	// Should only have vtest and conn nodes, no comments
	if len(root.Children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(root.Children))
	}
}

func TestParser_LineContinuation(t *testing.T) {
	input := `txreq c1 -hdr foo bar \
	-hdr baz qux`
	p := NewParser(strings.NewReader(input), nil, nil)

	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if len(root.Children) != 1 {
		t.Fatalf("Expected 1 child, got %d", len(root.Children))
	}

	cmd := root.Children[0]
	if cmd.Name != "txreq" {
		t.Errorf("Expected name 'txreq', got '%s'", cmd.Name)
	}

	// Should have all arguments combined
	expectedArgs := []string{"c1", "-hdr", "foo", "bar", "-hdr", "baz", "qux"}
	if len(cmd.Args) != len(expectedArgs) {
		t.Fatalf("Expected %d args, got %d", len(expectedArgs), len(cmd.Args))
	}

	for i, exp := range expectedArgs {
		if cmd.Args[i] != exp {
			t.Errorf("Arg %d: expected '%s', got '%s'", i, exp, cmd.Args[i])
		}
	}
}

func TestParser_MacroExpansion(t *testing.T) {
	macros := NewMacroStore()
	macros.Define("c1_mode", "active")

	input := `conn c1 -mode ${c1_mode}`
	p := NewParser(strings.NewReader(input), macros, nil)

	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if len(root.Children) != 1 {
		t.Fatalf("Expected 1 child, got %d", len(root.Children))
	}

	cmd := root.Children[0]
	if len(cmd.Args) != 3 {
		t.Fatalf("Expected 3 args, got %d: %v", len(cmd.Args), cmd.Args)
	}

	if cmd.Args[0] != "c1" {
		t.Errorf("Expected arg 0 to be 'c1', got '%s'", cmd.Args[0])
	}

	if cmd.Args[1] != "-mode" {
		t.Errorf("Expected arg 1 to be '-mode', got '%s'", cmd.Args[1])
	}

	// In Phase 1, macros are kept as-is in the AST
	// They will be expanded during execution in later phases
	if cmd.Args[2] != "${c1_mode}" {
		t.Errorf("Expected arg 2 to be '${c1_mode}', got '%s'", cmd.Args[2])
	}
}
