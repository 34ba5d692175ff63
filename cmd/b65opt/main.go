package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/spf13/cobra"

	"github.com/blendsdk/blend65-sub003/pkg/cost"
	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
	"github.com/blendsdk/blend65-sub003/pkg/pattern"
	"github.com/blendsdk/blend65-sub003/pkg/peep"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "b65opt",
		Short: "6502 peephole optimizer for straight-line instruction rewriting",
	}

	// optimize command
	var levelStr string
	var maxPasses int
	var workers int
	var statsPath string
	var verbose bool

	optimizeCmd := &cobra.Command{
		Use:   "optimize [file]",
		Short: "Optimize a straight-line 6502 sequence (stdin when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := pattern.ParseLevel(levelStr)
			if err != nil {
				return err
			}

			var text []byte
			if len(args) == 1 {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}

			seq, err := parseAssembly(string(text))
			if err != nil {
				return err
			}

			engine, err := peep.New(pattern.DefaultRegistry(), peep.Config{
				Level:     level,
				MaxPasses: maxPasses,
				Workers:   workers,
				Logger:    log.New(),
			})
			if err != nil {
				return err
			}

			block := &flow.Block{ID: 0, Instrs: seq}
			graph := flow.NewGraph(block)
			rep := engine.Optimize(graph)

			for _, in := range block.Instrs {
				fmt.Println("\t" + inst.Disassemble(in))
			}
			if verbose {
				for _, b := range rep.Blocks {
					for _, a := range b.Applications {
						fmt.Printf("; %s: %s -> %s (-%d cycles, -%d bytes)\n",
							a.Pattern, a.Before, orNothing(a.After),
							a.CyclesSaved, a.BytesSaved)
					}
				}
			}
			fmt.Printf("; %d -> %d instructions, saved ~%d cycles, %d bytes\n",
				len(seq), len(block.Instrs), rep.Savings.Cycles, rep.Savings.Bytes)
			if !rep.Converged {
				fmt.Println("; warning: pass limit reached before a fixed point")
			}

			if statsPath != "" {
				f, err := os.Create(statsPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := rep.WriteJSON(f); err != nil {
					return err
				}
			}
			return nil
		},
	}
	optimizeCmd.Flags().StringVarP(&levelStr, "level", "O", "standard", "Optimization level (none, basic, standard, aggressive)")
	optimizeCmd.Flags().IntVar(&maxPasses, "max-passes", 0, "Pass cap per block (0 = default)")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "Number of workers (0 = NumCPU)")
	optimizeCmd.Flags().StringVar(&statsPath, "stats", "", "Write a JSON report to this path")
	optimizeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each applied rewrite")

	// patterns command
	patternsCmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the registered peephole patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range pattern.DefaultRegistry().All() {
				fmt.Printf("%-26s %-11s %-10s w=%d  %s\n",
					p.ID(), p.Category(), p.MinLevel(), p.WindowSize(), p.Description())
			}
			return nil
		},
	}

	// cost command
	costCmd := &cobra.Command{
		Use:   "cost [instructions]",
		Short: "Show the cycle and byte cost of a sequence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := parseAssembly(strings.Join(args, " "))
			if err != nil {
				return err
			}
			c, err := cost.Of(seq)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", inst.DisassembleSeq(seq))
			fmt.Printf("cycles: %d-%d (avg %.1f), bytes: %d\n",
				c.MinCycles, c.MaxCycles, c.AvgCycles, c.Bytes)
			return nil
		},
	}

	rootCmd.AddCommand(optimizeCmd, patternsCmd, costCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func orNothing(s string) string {
	if s == "" {
		return "(removed)"
	}
	return s
}
