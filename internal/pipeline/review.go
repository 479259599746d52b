package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/constants"
)

// reviewPhase blocks until the user confirms the name file. Every Enter
// reloads the file from disk; a file that no longer parses keeps the gate
// open so a half-finished edit cannot slip into the translation.
func (p *Pipeline) reviewPhase(ctx context.Context, w *work) error {
	path := w.store.Path()
	p.launchEditor(path)

	fmt.Fprintf(p.stdout, "\nReview the name file, save your edits, then press Enter to continue:\n  %s\n", path)

	scanner := bufio.NewScanner(p.stdin)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(p.stdout, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			// stdin closed; take the file as it stands
			if err := w.store.ReloadFromDisk(); err != nil {
				return err
			}
			break
		}
		if err := w.store.ReloadFromDisk(); err != nil {
			fmt.Fprintf(p.stdout, "Could not parse the name file (%v). Fix it and press Enter again.\n", err)
			continue
		}
		break
	}

	p.logger.Info("Name review complete", zap.Int("names", w.store.NameCount()))
	return nil
}

// launchEditor starts the configured editor detached so the prompt loop
// keeps the terminal. A missing editor is not fatal; the file path is
// printed either way.
func (p *Pipeline) launchEditor(path string) {
	name := p.cfg.Review.EditorCommand
	if name == "" {
		for _, candidate := range constants.EditorCandidates {
			if _, err := exec.LookPath(candidate); err == nil {
				name = candidate
				break
			}
		}
	}
	if name == "" {
		p.logger.Warn("No editor found, open the name file manually")
		return
	}

	cmd := exec.Command(name, path)
	if err := cmd.Start(); err != nil {
		p.logger.Warn("Failed to launch editor", zap.String("editor", name), zap.Error(err))
		return
	}
	go func() { _ = cmd.Wait() }()
}
