package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"mmbcheck/internal/mmb"
	"mmbcheck/internal/opcode"
	"mmbcheck/internal/verifier"
)

var infoCmd = &cobra.Command{
	Use:   "info [flags] <file.mmb>",
	Short: "Show the declarations of a proof file without checking it",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().String("format", "text", "output format (text|json)")
}

type fileInfo struct {
	Path     string   `json:"path"`
	Version  uint8    `json:"version"`
	Sorts    []string `json:"sorts"`
	Terms    int      `json:"terms"`
	Defs     int      `json:"defs"`
	Theorems int      `json:"theorems"`
	Axioms   int      `json:"axioms"`
	Binders  int      `json:"binders"`
	Unify    int      `json:"unify_commands"`
	Decls    int      `json:"declarations"`
	Proof    int      `json:"proof_commands"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	info, err := describe(args[0], data)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch format {
	case "text":
		writeInfo(out, info)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	default:
		return fmt.Errorf("invalid --format value %q (expected text|json)", format)
	}
}

func describe(path string, data []byte) (*fileInfo, error) {
	// the header is parsed again by the builder; this only reads the version
	f, err := mmb.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", verifier.ErrBuild, err)
	}
	version := f.Version
	v, err := verifier.New(data)
	if err != nil {
		return nil, err
	}
	t := &v.Table
	info := &fileInfo{
		Path:     path,
		Version:  version,
		Sorts:    make([]string, len(t.Sorts)),
		Terms:    len(t.Terms),
		Theorems: len(t.Theorems),
		Binders:  len(t.Binders),
		Unify:    len(t.Unify),
	}
	for i, s := range t.Sorts {
		info.Sorts[i] = s.String()
	}
	for i := range t.Terms {
		if t.Terms[i].IsDef() {
			info.Defs++
		}
	}
	s := v.Stream()
	info.Axioms = len(s.Indices().Axiom)
	for _, st := range s.Statements() {
		// the End marker is a statement but declares nothing
		if st.Kind == opcode.StmtEnd {
			continue
		}
		info.Decls++
		info.Proof += len(s.Proof(st))
	}
	return info, nil
}

func writeInfo(out io.Writer, info *fileInfo) {
	rows := []struct {
		label string
		value string
	}{
		{"file", info.Path},
		{"version", fmt.Sprint(info.Version)},
		{"sorts", fmt.Sprint(len(info.Sorts))},
		{"terms", fmt.Sprintf("%d (%d definitions)", info.Terms, info.Defs)},
		{"theorems", fmt.Sprintf("%d (%d axioms)", info.Theorems, info.Axioms)},
		{"binders", fmt.Sprint(info.Binders)},
		{"unify commands", fmt.Sprint(info.Unify)},
		{"declarations", fmt.Sprint(info.Decls)},
		{"proof commands", fmt.Sprint(info.Proof)},
	}
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.label))
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(r.label, width), r.value) //nolint:errcheck
	}
	for i, s := range info.Sorts {
		fmt.Fprintf(out, "  sort %d: %s\n", i, s) //nolint:errcheck
	}
}
