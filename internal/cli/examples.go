package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExamplesCmd shows usage examples for shotbridge commands
type ExamplesCmd struct {
	Command string `arg:"" optional:"" help:"Show examples for specific command (run, tail, replay, etc.)"`
	JSON    bool   `help:"Output as JSON for programmatic access"`
}

// Example represents a single usage example
type Example struct {
	Command     string `json:"command"`
	Description string `json:"description"`
	Output      string `json:"output,omitempty"`
	When        string `json:"when,omitempty"`
}

// CommandExamples holds examples for a single command
type CommandExamples struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Examples    []Example `json:"examples"`
}

// AllExamples contains examples for all commands
type AllExamples struct {
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Commands  []CommandExamples `json:"commands"`
	Workflows []WorkflowExample `json:"workflows"`
}

// WorkflowExample shows a multi-step workflow
type WorkflowExample struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	When        string   `json:"when"`
	Steps       []string `json:"steps"`
}

var commandExamples = map[string]CommandExamples{
	"run": {
		Name:        "run",
		Description: "Tail the GSPro launch monitor log and bridge every shot to the Open Connect API",
		Examples: []Example{
			{
				Command:     `shotbridge run`,
				Description: "Bridge using the default log path and 127.0.0.1:921",
				Output:      `{"type":"shot","event":"sent","shot":{"ShotNumber":7,"BallData":{"Speed":148.2,...}}}`,
				When:        "GSPro is running on this machine with the Open Connect API enabled",
			},
			{
				Command:     `shotbridge run --host 192.168.1.20 --heartbeat 30s`,
				Description: "Bridge to a simulator on another machine and keep the connection alive",
				When:        "The launch monitor PC and the simulator PC are different machines",
			},
			{
				Command:     `shotbridge run --chart --aoa -2 -f text`,
				Description: "Show each shot against the optimal launch chart",
				When:        "Practising driver launch conditions",
			},
			{
				Command:     `shotbridge run --max-duration 1h`,
				Description: "Stop after one hour and print a summary",
			},
		},
	},
	"tail": {
		Name:        "tail",
		Description: "Print shots as the launch monitor logs them, without a simulator",
		Examples: []Example{
			{
				Command:     `shotbridge tail`,
				Description: "Watch the default GSPro log",
				Output:      `{"type":"shot","event":"parsed","shot":{...}}`,
			},
			{
				Command:     `shotbridge tail -p ./output_log.txt --max-shots 5`,
				Description: "Follow a specific file and stop after five shots",
				When:        "Checking that the launch monitor writes launch records",
			},
		},
	},
	"replay": {
		Name:        "replay",
		Description: "Parse a recorded log from the beginning",
		Examples: []Example{
			{
				Command:     `shotbridge replay output_log.txt`,
				Description: "List every shot in a saved log",
			},
			{
				Command:     `shotbridge replay output_log.txt --send --delay 5s`,
				Description: "Play a saved session into the simulator, one shot every five seconds",
				When:        "Reproducing a round or testing the simulator without hitting balls",
			},
		},
	},
	"send": {
		Name:        "send",
		Description: "Send one test shot or heartbeat and print the response",
		Examples: []Example{
			{
				Command:     `shotbridge send --speed 150 --vla 11.5 --total-spin 2400`,
				Description: "Send a drive-like shot",
				Output:      `{"type":"response","code":200,"message":"Shot received successfully"}`,
				When:        "Verifying the simulator connection",
			},
			{
				Command:     `shotbridge send --heartbeat --wait 1s`,
				Description: "Send a heartbeat",
			},
		},
	},
	"chart": {
		Name:        "chart",
		Description: "Print the optimal launch chart by ball speed and angle of attack",
		Examples: []Example{
			{
				Command:     `shotbridge chart -f text`,
				Description: "Full chart as a colored table",
			},
			{
				Command:     `shotbridge chart --speed 160 --aoa 4 --entry`,
				Description: "Optimal launch and spin for one speed and angle of attack",
				Output:      `{"type":"chart_entry","ballSpeed":160,"attackAngle":4,"launch":14.4,"spin":2300,"carry":275,"score":275}`,
			},
			{
				Command:     `shotbridge chart --column --aoa -2`,
				Description: "Every ball speed at one angle of attack",
			},
			{
				Command:     `shotbridge chart --speed 160 --aoa 4 --launch 11 --spin 3100`,
				Description: "Compare one shot with the nearest chart entry",
			},
		},
	},
	"config": {
		Name:        "config",
		Description: "Show or manage configuration",
		Examples: []Example{
			{
				Command:     `shotbridge config`,
				Description: "Show the effective configuration",
			},
			{
				Command:     `shotbridge config generate > ~/.shotbridge.yaml`,
				Description: "Write a sample configuration file",
			},
		},
	},
}

var workflows = []WorkflowExample{
	{
		Name:        "first_connection",
		Description: "Check each piece before a practice session",
		When:        "Setting up a new launch monitor or simulator PC",
		Steps: []string{
			`shotbridge send --heartbeat`,
			"# The simulator answers, so the socket is reachable",
			`shotbridge tail --max-shots 1`,
			"# Hit one ball; the launch monitor log is being written",
			`shotbridge run --heartbeat 30s`,
		},
	},
	{
		Name:        "session_review",
		Description: "Review a finished session against the chart",
		When:        "After practice, with a copy of output_log.txt",
		Steps: []string{
			`shotbridge replay output_log.txt --chart --aoa -1 -f text`,
		},
	},
}

var exampleOrder = []string{"run", "tail", "replay", "send", "chart", "config"}

// Run executes the examples command
func (c *ExamplesCmd) Run(globals *Globals) error {
	if c.JSON {
		return c.outputJSON(globals)
	}
	return c.outputText(globals)
}

func (c *ExamplesCmd) outputJSON(globals *Globals) error {
	all := AllExamples{
		Type:      "examples",
		Version:   Version,
		Workflows: workflows,
	}

	if c.Command != "" {
		// Single command
		if examples, ok := commandExamples[c.Command]; ok {
			all.Commands = []CommandExamples{examples}
		} else {
			return fmt.Errorf("unknown command: %s", c.Command)
		}
	} else {
		// All commands
		for _, cmd := range exampleOrder {
			if examples, ok := commandExamples[cmd]; ok {
				all.Commands = append(all.Commands, examples)
			}
		}
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(globals.Stdout, string(data)); err != nil {
		return err
	}
	return nil
}

func (c *ExamplesCmd) outputText(globals *Globals) error {
	var sb strings.Builder

	if c.Command != "" {
		// Single command
		if examples, ok := commandExamples[c.Command]; ok {
			c.formatCommandExamples(&sb, examples)
		} else {
			return fmt.Errorf("unknown command: %s\nAvailable: %s", c.Command, strings.Join(exampleOrder, ", "))
		}
	} else {
		// All commands
		sb.WriteString("SHOTBRIDGE USAGE EXAMPLES\n")
		sb.WriteString("=========================\n\n")

		for _, cmd := range exampleOrder {
			if examples, ok := commandExamples[cmd]; ok {
				c.formatCommandExamples(&sb, examples)
				sb.WriteString("\n")
			}
		}

		// Workflows
		sb.WriteString("WORKFLOWS\n")
		sb.WriteString("---------\n\n")
		for _, wf := range workflows {
			sb.WriteString(fmt.Sprintf("## %s\n", wf.Name))
			sb.WriteString(fmt.Sprintf("%s\n", wf.Description))
			sb.WriteString(fmt.Sprintf("When: %s\n\n", wf.When))
			for _, step := range wf.Steps {
				sb.WriteString(fmt.Sprintf("  %s\n", step))
			}
			sb.WriteString("\n")
		}
	}

	if _, err := fmt.Fprint(globals.Stdout, sb.String()); err != nil {
		return err
	}
	return nil
}

func (c *ExamplesCmd) formatCommandExamples(sb *strings.Builder, cmd CommandExamples) {
	sb.WriteString(fmt.Sprintf("## %s\n", strings.ToUpper(cmd.Name)))
	sb.WriteString(fmt.Sprintf("%s\n\n", cmd.Description))

	for _, ex := range cmd.Examples {
		sb.WriteString(fmt.Sprintf("  %s\n", ex.Command))
		sb.WriteString(fmt.Sprintf("    %s\n", ex.Description))
		if ex.Output != "" {
			sb.WriteString(fmt.Sprintf("    Output: %s\n", ex.Output))
		}
		if ex.When != "" {
			sb.WriteString(fmt.Sprintf("    When: %s\n", ex.When))
		}
		sb.WriteString("\n")
	}
}
