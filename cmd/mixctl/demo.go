package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/mixkit/internal/demo"
	"github.com/joshuapare/mixkit/mixin/module"
	"github.com/joshuapare/mixkit/mixin/registry"
)

func init() {
	rootCmd.AddCommand(newDemoCmd())
}

func newDemoCmd() *cobra.Command {
	var pluginA, pluginAMod, pluginB string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the reference plugin scenario",
		Long: `The demo command builds an object from an executable mixin and two library
mixins, then loads, applies and unloads three plugins one after another,
printing the multicast sum and the unicast results after every step.

The plugins default to the builtin modules. Point the flags at Go plugins
built from examples/plugin to run the same scenario across real plugin
boundaries.

Example:
  mixctl demo
  mixctl demo --plugin-a ./plugin_a.so --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]string{}
			for builtin, p := range map[string]string{
				demo.PluginAPath:    pluginA,
				demo.PluginAModPath: pluginAMod,
				demo.PluginBPath:    pluginB,
			} {
				if p != "" {
					overrides[builtin] = p
				}
			}
			return runDemo(cmd, overrides)
		},
	}
	cmd.Flags().StringVar(&pluginA, "plugin-a", "", "Go plugin replacing builtin:plugin_a")
	cmd.Flags().StringVar(&pluginAMod, "plugin-a-mod", "", "Go plugin replacing builtin:plugin_a_mod")
	cmd.Flags().StringVar(&pluginB, "plugin-b", "", "Go plugin replacing builtin:plugin_b")
	return cmd
}

func runDemo(cmd *cobra.Command, overrides map[string]string) error {
	reg, err := registry.New(cfg)
	if err != nil {
		return err
	}
	steps, err := demo.Run(cmd.Context(), module.NewLoader(reg, newBridge()), overrides)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(steps)
	}
	printInfo("  %-24s %6s %6s %8s %8s\n", "STEP", "MIXINS", "SUM", "SPECIFIC", "EXPORTED")
	for _, st := range steps {
		exported := "-"
		if st.HasExported {
			exported = strconv.Itoa(st.Exported)
		}
		printInfo("  %-24s %6d %6d %8d %8s\n", st.Action, st.Mixins, st.Sum, st.Specific, exported)
	}
	return nil
}
