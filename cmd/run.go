package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutago.dev/pkg/mutago/internal/domain"
	m "mutago.dev/pkg/mutago/internal/model"
)

var runOperatorsFlag []string
var runOrderFlag int
var runHOMStrategyFlag string
var runPercentageFlag float64
var runCoverageFlag bool
var runTimeoutFactorFlag float64
var runMinTimeoutFlag time.Duration
var runGracePeriodFlag time.Duration
var runTestsFlag []string
var runSeedFlag uint64
var runNoIgnoreFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run mutation testing",
		Long:  runLongDescription,
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindMutatorFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			survived, err := workflow.Run(commandContext(cmd), domain.RunArgs{
				LoadArgs:      loadArgs(args),
				MutatorArgs:   mutatorArgs(),
				Coverage:      viper.GetBool(coverageConfigKey),
				TimeoutFactor: viper.GetFloat64(timeoutFactorConfigKey),
				MinTimeout:    durationValue(minTimeoutConfigKey),
				GracePeriod:   durationValue(gracePeriodConfigKey),
				Reports:       m.Path(viper.GetString(outputFlagName)),
			})

			return runOutcome(survived, err)
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	configureMutatorFlags(cmd)

	cmd.Flags().BoolVar(&runCoverageFlag, coverageFlagName, viper.GetBool(coverageConfigKey), "only mutate code reached by the tests")
	bindFlagToConfig(cmd.Flags().Lookup(coverageFlagName), coverageConfigKey)

	cmd.Flags().Float64Var(&runTimeoutFactorFlag, timeoutFactorFlagName, viper.GetFloat64(timeoutFactorConfigKey), "multiple of the baseline duration a mutant may run")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFactorFlagName), timeoutFactorConfigKey)

	cmd.Flags().DurationVar(&runMinTimeoutFlag, minTimeoutFlagName, durationValue(minTimeoutConfigKey), "lower bound of the per-mutant time budget")
	bindFlagToConfig(cmd.Flags().Lookup(minTimeoutFlagName), minTimeoutConfigKey)

	cmd.Flags().DurationVar(&runGracePeriodFlag, gracePeriodFlagName, durationValue(gracePeriodConfigKey), "time a mutant gets to stop once its budget is spent")
	bindFlagToConfig(cmd.Flags().Lookup(gracePeriodFlagName), gracePeriodConfigKey)
}

// configureMutatorFlags adds the flags that select mutants, shared by run and
// list. They are bound to their config keys by bindMutatorFlags once the
// command is chosen.
func configureMutatorFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&runOperatorsFlag, operatorFlagName, "O", viper.GetStringSlice(operatorsConfigKey), "operator codes to apply, e.g. AOR,ROR (default: all)")
	cmd.Flags().IntVar(&runOrderFlag, orderFlagName, viper.GetInt(orderConfigKey), "mutations per mutant (higher order mutation)")
	cmd.Flags().StringVar(&runHOMStrategyFlag, homStrategyFlagName, viper.GetString(homStrategyConfigKey), fmt.Sprintf("grouping of higher order mutants %v", domain.HOMStrategies()))
	cmd.Flags().Float64Var(&runPercentageFlag, percentageFlagName, viper.GetFloat64(percentageConfigKey), "percentage of mutants to test")
	cmd.Flags().Uint64Var(&runSeedFlag, seedFlagName, viper.GetUint64(seedConfigKey), "seed for sampling and the random strategy (0 picks one)")
	cmd.Flags().StringSliceVar(&runTestsFlag, testsFlagName, viper.GetStringSlice(testsConfigKey), "packages whose tests judge the mutants (default: the target packages)")
	cmd.Flags().BoolVar(&runNoIgnoreFlag, noIgnoreFlagName, viper.GetBool(noIgnoreConfigKey), "disregard mutago:ignore directives")
}

var mutatorFlagKeys = map[string]string{
	operatorFlagName:    operatorsConfigKey,
	orderFlagName:       orderConfigKey,
	homStrategyFlagName: homStrategyConfigKey,
	percentageFlagName:  percentageConfigKey,
	seedFlagName:        seedConfigKey,
	testsFlagName:       testsConfigKey,
	noIgnoreFlagName:    noIgnoreConfigKey,
}

func bindMutatorFlags(cmd *cobra.Command) {
	for name, key := range mutatorFlagKeys {
		bindFlagToConfig(cmd.Flags().Lookup(name), key)
	}
}

func loadArgs(args []string) domain.LoadArgs {
	return domain.LoadArgs{
		Paths:   parsePaths(args),
		Tests:   viper.GetStringSlice(testsConfigKey),
		Exclude: viper.GetStringSlice(excludeConfigKey),
	}
}

func mutatorArgs() domain.MutatorArgs {
	return domain.MutatorArgs{
		Operators:      viper.GetStringSlice(operatorsConfigKey),
		Order:          viper.GetInt(orderConfigKey),
		HOMStrategy:    viper.GetString(homStrategyConfigKey),
		Percentage:     viper.GetFloat64(percentageConfigKey),
		Seed:           viper.GetUint64(seedConfigKey),
		DisableIgnores: viper.GetBool(noIgnoreConfigKey),
	}
}

// runOutcome turns the result of a run into the error cobra reports.
func runOutcome(survived int, err error) error {
	switch {
	case survived == domain.ExitLoadError:
		return &exitError{code: exitLoadError, err: err}
	case survived == domain.ExitBaselineFailure:
		return &exitError{code: exitBaselineFailure, err: err}
	case err != nil:
		return err
	case survived > 0:
		return &exitError{code: exitSurvivors, err: fmt.Errorf("%d mutant(s) survived", survived)}
	}

	return nil
}
