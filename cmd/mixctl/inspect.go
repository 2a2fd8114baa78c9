package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/mixkit/mixin/module"
	"github.com/joshuapare/mixkit/mixin/registry"
)

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

type inspectReport struct {
	Generation uint64                `json:"generation"`
	Modules    []registry.ModuleInfo `json:"modules"`
	Mixins     []mixinReport         `json:"mixins"`
	Messages   []messageReport       `json:"messages"`
}

type mixinReport struct {
	ID       uint32   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type,omitempty"`
	Size     uintptr  `json:"size"`
	Align    uintptr  `json:"align"`
	Pointers bool     `json:"has_pointers"`
	Messages []string `json:"messages"`
}

type messageReport struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [module...]",
		Short: "Load modules and report their mixins and messages",
		Long: `The inspect command loads each module into a fresh registry and prints the
resulting modules, mixins and messages. Modules are Go plugin files or
builtin demo paths (builtin:exe, builtin:dynlib_a, builtin:plugin_a,
builtin:plugin_a_mod, builtin:plugin_b). Without arguments the plugins
listed in the configuration are loaded.

Example:
  mixctl inspect builtin:exe builtin:dynlib_a
  mixctl inspect ./plugin_a.so --json
  mixctl inspect -c mixkit.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args)
		},
	}
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = cfg.Plugins
	}
	if len(paths) == 0 {
		return fmt.Errorf("no modules given and no plugins configured")
	}

	reg, err := registry.New(cfg)
	if err != nil {
		return err
	}
	loader := module.NewLoader(reg, newBridge())
	ctx := cmd.Context()
	for _, p := range paths {
		printVerbose("Loading module: %s\n", p)
		if _, err := loader.Load(ctx, p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	report := buildReport(reg)
	if err := loader.UnloadAll(ctx); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("\nRegistry (generation %d):\n", report.Generation)
	printInfo("\nModules:\n")
	for _, m := range report.Modules {
		printInfo("  %s\n", m.Name)
		for _, d := range m.Defines {
			printInfo("    defines  %s\n", d)
		}
		for _, d := range m.Declares {
			printInfo("    declares %s\n", d)
		}
	}
	printInfo("\nMixins:\n")
	for _, m := range report.Mixins {
		printInfo("  #%-3d %-20s size=%-4d align=%-4d pointers=%-5t %v\n",
			m.ID, m.Name, m.Size, m.Align, m.Pointers, m.Messages)
	}
	printInfo("\nMessages:\n")
	for _, m := range report.Messages {
		printInfo("  #%-3d %-24s %s\n", m.ID, m.Name, m.Signature)
	}
	return nil
}

func buildReport(reg *registry.Registry) inspectReport {
	r := inspectReport{Generation: reg.Generation(), Modules: reg.Modules()}
	for _, m := range reg.Mixins() {
		mr := mixinReport{
			ID:       uint32(m.ID),
			Name:     m.Name,
			Size:     m.Layout.Size,
			Align:    m.Layout.Align,
			Pointers: m.Layout.HasPointers,
			Messages: []string{},
		}
		if m.Layout.Type != nil {
			mr.Type = m.Layout.Type.String()
		}
		msgs, _ := reg.MessagesOf(m.ID)
		for _, msg := range msgs {
			mr.Messages = append(mr.Messages, msg.Name)
		}
		r.Mixins = append(r.Mixins, mr)
	}
	for _, m := range reg.Messages() {
		r.Messages = append(r.Messages, messageReport{
			ID:        uint32(m.ID),
			Name:      m.Name,
			Signature: m.Signature.String(),
		})
	}
	return r
}
