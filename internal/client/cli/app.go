package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/cryptox"
)

// App runs the claim tool against the given streams. Stdout carries results,
// stderr carries prompts so output can be piped cleanly.
type App struct {
	In     io.Reader
	Out    io.Writer
	Prompt io.Writer
}

// NewApp returns an App bound to the process streams.
func NewApp() *App {
	return &App{In: os.Stdin, Out: os.Stdout, Prompt: os.Stderr}
}

// claimFile mirrors the claim payload shape: the attachment in a release
// mail and the response of the claim endpoint are both parseable here. A
// bare envelope without the note wrapper is accepted too.
type claimFile struct {
	Note      string                  `json:"note"`
	Encrypted *cryptox.EncryptedBlock `json:"encrypted"`
}

// Encrypt reads a plaintext secret, asks for a password twice and writes the
// envelope JSON. inPath may be empty, in which case the secret is read
// interactively from In. outPath may be empty, in which case the envelope
// goes to Out.
func (a *App) Encrypt(inPath, outPath string) error {
	var plaintext string
	if inPath != "" {
		body, err := os.ReadFile(inPath)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		plaintext = string(body)
	} else {
		text, err := GetMultiline(bufio.NewReader(a.In), "Enter the secret to encrypt", a.Prompt)
		if err != nil {
			return err
		}
		plaintext = text
	}
	if plaintext == "" {
		return errors.New("nothing to encrypt")
	}

	password, err := GetPassword(a.Prompt, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(a.Prompt, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	block, err := cryptox.Encrypt(string(password), plaintext)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	if outPath != "" {
		return os.WriteFile(outPath, out, 0o600)
	}
	_, err = a.Out.Write(out)
	return err
}

// Decrypt reads a claim payload file, asks for the password and prints the
// note and the recovered secret.
func (a *App) Decrypt(inPath string) error {
	if inPath == "" {
		return errors.New("decrypt requires an input file")
	}

	body, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var claim claimFile
	if err := json.Unmarshal(body, &claim); err != nil {
		return fmt.Errorf("parse claim: %w", err)
	}
	if claim.Encrypted == nil {
		// Not the wrapped shape, try a bare envelope.
		block := &cryptox.EncryptedBlock{}
		if err := json.Unmarshal(body, block); err != nil {
			return fmt.Errorf("parse claim: %w", err)
		}
		claim.Encrypted = block
	}

	password, err := GetPassword(a.Prompt, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	plaintext, err := cryptox.Decrypt(string(password), claim.Encrypted)
	if err != nil {
		return err
	}

	if claim.Note != "" {
		fmt.Fprintf(a.Out, "Note: %s\n\n", claim.Note)
	}
	fmt.Fprintln(a.Out, plaintext)
	return nil
}
