package mailparse

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

var (
	ErrNoSender        = errors.New("message has no sender address")
	ErrNoPlainTextBody = errors.New("message has no text/plain part")
)

// ReadMessage parses a raw RFC 822 message.
func ReadMessage(raw string) (*mail.Message, error) {
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return msg, nil
}

// ExtractSender returns the address from the From header.
func ExtractSender(msg *mail.Message) (string, error) {
	from := msg.Header.Get("From")
	if from == "" {
		return "", ErrNoSender
	}

	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSender, err)
	}

	return addr.Address, nil
}

// ExtractPlainText returns the first text/plain part of a multipart
// message, or the whole body for a non-multipart message.
func ExtractPlainText(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		return readAll(msg.Body)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("bad Content-Type header: %w", err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return readAll(msg.Body)
	}

	reader := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return "", ErrNoPlainTextBody
		}
		if err != nil {
			return "", fmt.Errorf("failed to walk message parts: %w", err)
		}

		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}
		if partType == "text/plain" {
			return readAll(part)
		}
	}
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(b), nil
}
