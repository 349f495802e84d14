package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"

	eqimaging "github.com/ironsheep/eqregions/internal/imaging"
)

// ImagePlaceholder in a command's arguments is replaced by the image path.
const ImagePlaceholder = "{image}"

// ErrCommandNotFound is returned when the recognizer executable is missing.
var ErrCommandNotFound = errors.New("recognizer command not found")

// Command recognizes images by running an external program, such as pix2tex,
// on a temporary PNG file. The program's trimmed standard output is the
// recognized text; a non-zero exit status is an error.
type Command struct {
	path string
	args []string
}

// NewCommand resolves name on PATH and returns a Command recognizer.
//
// If args contains no ImagePlaceholder, the image path is appended as the
// last argument.
func NewCommand(name string, args []string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty command", ErrCommandNotFound)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, name, err)
	}

	hasPlaceholder := false
	for _, a := range args {
		if strings.Contains(a, ImagePlaceholder) {
			hasPlaceholder = true
			break
		}
	}
	full := append([]string(nil), args...)
	if !hasPlaceholder {
		full = append(full, ImagePlaceholder)
	}

	return &Command{path: path, args: full}, nil
}

// Recognize writes img to a temporary PNG, runs the command on it and returns
// its trimmed standard output.
func (c *Command) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := eqimaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp("", "eqregions-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}

	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, ImagePlaceholder, tmpPath)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s failed: %w: %s", c.path, err, msg)
		}
		return "", fmt.Errorf("%s failed: %w", c.path, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Info reports the resolved executable.
func (c *Command) Info(context.Context) Info {
	return Info{
		Backend:   BackendCommand,
		Available: true,
		Detail:    strings.Join(append([]string{c.path}, c.args...), " "),
	}
}
