package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/engine"
	"github.com/skillet-ai/skillet/pkg/presenter"
)

// RunConfig holds configuration for the run command
type RunConfig struct {
	Inputs     []string
	InputsJSON string
	JSONOutput bool
	Quiet      bool
}

// NewRunConfig creates a new RunConfig with default values
func NewRunConfig() *RunConfig {
	return &RunConfig{}
}

var runCmd = &cobra.Command{
	Use:   "run [skill]",
	Short: "Run a skill from the catalog",
	Long: `Run executes the named skill: inputs are validated, each step runs in
order, and the skill's declared outputs are printed at the end.

Inputs can be passed as repeated --input key=value flags or as a single
--inputs-json document. Values given via --input are decoded as JSON when
possible, so --input count=3 yields a number and --input name=alice a string.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getRunConfigFromFlags(cmd)
		os.Exit(runSkillCommand(ctx, args[0], config))
	},
}

func init() {
	defaults := NewRunConfig()
	runCmd.Flags().StringArrayP("input", "i", defaults.Inputs, "Skill input as key=value (repeatable)")
	runCmd.Flags().String("inputs-json", defaults.InputsJSON, "Skill inputs as a JSON object")
	runCmd.Flags().Bool("json", defaults.JSONOutput, "Print the full run result as JSON")
	runCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Only print outputs and errors")
}

// getRunConfigFromFlags extracts run configuration from command flags
func getRunConfigFromFlags(cmd *cobra.Command) *RunConfig {
	config := NewRunConfig()

	if inputs, err := cmd.Flags().GetStringArray("input"); err == nil {
		config.Inputs = inputs
	}
	if inputsJSON, err := cmd.Flags().GetString("inputs-json"); err == nil {
		config.InputsJSON = inputsJSON
	}
	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOutput
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
		config.Quiet = quiet
	}

	return config
}

// parseInputs merges --inputs-json and --input flags, the latter winning
// on conflicts. Flag values are decoded as JSON when they parse, so
// numbers, booleans, and objects come through typed.
func parseInputs(config *RunConfig) (map[string]any, error) {
	inputs := map[string]any{}

	if config.InputsJSON != "" {
		if err := json.Unmarshal([]byte(config.InputsJSON), &inputs); err != nil {
			return nil, fmt.Errorf("invalid --inputs-json: %w", err)
		}
	}

	for _, pair := range config.Inputs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --input %q, expected key=value", pair)
		}
		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err == nil {
			inputs[key] = typed
		} else {
			inputs[key] = value
		}
	}

	return inputs, nil
}

func runSkillCommand(ctx context.Context, name string, config *RunConfig) int {
	presenter.SetQuiet(config.Quiet)

	inputs, err := parseInputs(config)
	if err != nil {
		presenter.Error(err, "invalid inputs")
		return 1
	}

	eng, _, _, cleanup, err := buildEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize")
		return 1
	}
	defer cleanup()

	result, runErr := eng.Run(ctx, name, inputs)
	if result == nil {
		presenter.Error(runErr, "skill run failed")
		return 1
	}

	if config.JSONOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			presenter.Error(err, "failed to encode result")
			return 1
		}
		fmt.Println(string(data))
	} else {
		printRunResult(result)
	}

	if result.Aborted {
		return 1
	}
	return 0
}

func printRunResult(result *engine.RunResult) {
	presenter.Section(fmt.Sprintf("Run %s (%s)", result.RunID, result.Skill))

	for _, step := range result.Steps {
		switch step.Status {
		case engine.StatusSuccess:
			presenter.Success(fmt.Sprintf("%-20s %s (%s)", step.StepID, step.Status, step.Duration.Round(time.Millisecond)))
		case engine.StatusSkipped:
			presenter.Info(fmt.Sprintf("%-20s %s", step.StepID, step.Status))
		case engine.StatusFailure:
			presenter.Warning(fmt.Sprintf("%-20s %s: %s", step.StepID, step.Status, step.Error))
		}
	}

	if result.Aborted {
		presenter.Error(fmt.Errorf("%s", result.FailureMessage),
			fmt.Sprintf("skill aborted at step %q", result.FailedStep))
	}

	if len(result.Outputs) > 0 {
		presenter.Section("Outputs")
		data, err := json.MarshalIndent(result.Outputs, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
}
