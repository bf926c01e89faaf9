package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mmbcheck/internal/debugger"
	"mmbcheck/internal/trace"
	"mmbcheck/internal/verifier"
)

var stepCmd = &cobra.Command{
	Use:   "step [flags] <file.mmb>",
	Short: "Step through the proofs of a file",
	Long: `Step opens an interactive session over one proof file. Commands are read
from the terminal, or from --script. Type help for the command list.`,
	Args: cobra.ExactArgs(1),
	RunE: runStep,
}

func init() {
	stepCmd.Flags().String("script", "", "read debugger commands from a file instead of stdin")
	stepCmd.Flags().Bool("allow-sorry", false, "accept sorry placeholders in proofs")
	stepCmd.Flags().Bool("unify", false, "check every signature before the session starts")
}

func runStep(cmd *cobra.Command, args []string) error {
	script, err := cmd.Flags().GetString("script")
	if err != nil {
		return err
	}
	allowSorry, err := cmd.Flags().GetBool("allow-sorry")
	if err != nil {
		return err
	}
	unify, err := cmd.Flags().GetBool("unify")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	v, err := verifier.NewWithOptions(data, verifier.Options{
		Tracer:     trace.FromContext(cmd.Context()),
		AllowSorry: allowSorry,
	})
	if err != nil {
		return err
	}
	if unify {
		if err := v.VerifyUnify(); err != nil {
			return err
		}
	}

	var in io.Reader = cmd.InOrStdin()
	interactive := isTerminal(os.Stdin)
	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
		interactive = false
	}

	out := cmd.OutOrStdout()
	if interactive {
		fmt.Fprintf(out, "%s: %d statements, %s\n", args[0], v.Stream().Len(), v.State) //nolint:errcheck
	}
	res, err := debugger.New(v, in, out, interactive).Run()
	if err != nil {
		return err
	}
	if res.Done {
		fmt.Fprintf(out, "verified: %s\n", v.State) //nolint:errcheck
	}
	return nil
}
