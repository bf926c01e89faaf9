package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mmbcheck/internal/driver"
	"mmbcheck/internal/ui"
)

type verifyOutcome struct {
	results []driver.FileResult
	err     error
}

func runVerifyWithUI(ctx context.Context, title string, files []string, opts driver.Options) ([]driver.FileResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan verifyOutcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.VerifyFiles(ctx, files, o)
		outcomeCh <- verifyOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
