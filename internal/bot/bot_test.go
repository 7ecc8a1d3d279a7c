package bot

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	parser := NewCommandParser()

	tests := []struct {
		name      string
		input     string
		wantCmd   string
		wantArgs  []string
		isCommand bool
	}{
		{"slash command", "/matches", "matches", nil, true},
		{"bang command", "!pay finals", "pay", []string{"finals"}, true},
		{"dot command", ".sales", "sales", nil, true},
		{"with botname suffix", "/pay@clickfix_bot finals", "pay", []string{"finals"}, true},
		{"uppercase normalized", "/PAY Finals", "pay", []string{"Finals"}, true},
		{"multiple args", "/login my secret pass", "login", []string{"my", "secret", "pass"}, true},
		{"leading whitespace", "  /matches  ", "matches", nil, true},
		{"plain text", "привет", "", nil, false},
		{"empty", "", "", nil, false},
		{"prefix only", "/", "", nil, false},
		{"prefix and spaces", "/   ", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, isCommand := parser.ParseCommand(tt.input)
			if isCommand != tt.isCommand {
				t.Fatalf("isCommand = %v, want %v", isCommand, tt.isCommand)
			}
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %q, want %q", cmd, tt.wantCmd)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
