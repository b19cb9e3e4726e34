package servicelink

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExtractText extracts the text layer from a PDF using pdftotext.
// The listing is digitally produced, so the text layer is reliable; an
// image-only scan comes back empty and the caller records a parse failure.
func ExtractText(ctx context.Context, pdf []byte) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(pdf)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w (%s)", err, stderr.String())
	}
	return stdout.String(), nil
}
