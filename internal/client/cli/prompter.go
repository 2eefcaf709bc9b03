package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
)

// terminalPrompter shows the captcha as a temporary PNG file and reads the
// answers from the terminal.
type terminalPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func (p *terminalPrompter) CaptchaAnswer(_ context.Context, png []byte) (string, error) {
	path, err := writeTempPNG("shopctl-captcha-*.png", png)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	fmt.Fprintf(p.out, "Captcha image saved to %s\n", path)
	return GetCode(p.reader, "Enter the digits shown in the captcha", p.out)
}

func (p *terminalPrompter) MFACode(context.Context) (string, error) {
	return GetCode(p.reader, "Enter the 6-digit code from your authenticator app", p.out)
}

func writeTempPNG(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// decodeDataURL returns the payload of a base64 data URL.
func decodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ";base64,")
	if !ok {
		return nil, fmt.Errorf("not a base64 data url")
	}
	return base64.StdEncoding.DecodeString(payload)
}
