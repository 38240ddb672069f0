package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tyemirov/certtrust/internal/buildpolicy"
	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	flagNameCurrentResult = "current"
	flagNameErrorCount    = "errors"

	logFieldBehavior      = "behavior"
	logFieldLabel         = "label"
	logFieldResult        = "result"
	logMessageBuildResult = "build outcome resolved"
)

func newBuildCommand(resources *applicationResources) *cobra.Command {
	buildCommand := &cobra.Command{
		Use:   "build",
		Short: "Resolve build outcomes from error behaviors",
	}
	buildCommand.AddCommand(newBuildOutcomeCommand(resources))
	buildCommand.AddCommand(newBuildBehaviorsCommand())
	return buildCommand
}

func newBuildOutcomeCommand(resources *applicationResources) *cobra.Command {
	outcomeCommand := &cobra.Command{
		Use:   "outcome",
		Short: "Print the build outcome after applying an error behavior",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			currentValue, flagErr := cmd.Flags().GetString(flagNameCurrentResult)
			if flagErr != nil {
				return fmt.Errorf("read current flag: %w", flagErr)
			}
			errorCount, flagErr := cmd.Flags().GetInt(flagNameErrorCount)
			if flagErr != nil {
				return fmt.Errorf("read errors flag: %w", flagErr)
			}
			return runBuildOutcome(cmd, currentValue, errorCount)
		},
	}
	outcomeCommand.Flags().String(flagNameBehavior, resources.configurationManager.GetString(configKeyBuildBehavior), "Error behavior name or label")
	outcomeCommand.Flags().String(flagNameCurrentResult, buildpolicy.ResultSuccess.String(), "Build result before errors are considered")
	outcomeCommand.Flags().Int(flagNameErrorCount, 0, "Number of errors detected")
	_ = resources.configurationManager.BindPFlag(configKeyBuildBehavior, outcomeCommand.Flags().Lookup(flagNameBehavior))
	return outcomeCommand
}

func runBuildOutcome(cmd *cobra.Command, currentValue string, errorCount int) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	if errorCount < 0 {
		return fmt.Errorf("error count must not be negative: %d", errorCount)
	}
	behavior, err := buildpolicy.ParseErrorBehavior(resources.configurationManager.GetString(configKeyBuildBehavior))
	if err != nil {
		return err
	}
	currentResult, err := buildpolicy.ParseResult(currentValue)
	if err != nil {
		return err
	}
	outcome := behavior.Apply(currentResult, errorCount > 0)
	resources.loggingService.Info(logMessageBuildResult,
		logging.String(logFieldBehavior, behavior.String()),
		logging.String(logFieldLabel, behavior.Label()),
		logging.String(logFieldResult, outcome.String()))
	fmt.Fprintln(cmd.OutOrStdout(), outcome.String())
	return nil
}

func newBuildBehaviorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "behaviors",
		Short: "List the available error behaviors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "NAME\tLABEL\tRESULT\tDEFAULT")
			for _, behavior := range buildpolicy.ErrorBehaviors() {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%t\n", behavior.String(), behavior.Label(), behavior.EquivalentResult().String(), behavior.IsDefault())
			}
			return writer.Flush()
		},
	}
}
