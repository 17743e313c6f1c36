//go:build !whisper

package asr

import (
	"podseg/internal/config"

	"github.com/sirupsen/logrus"
)

func newWhisperRecognizer(_ *config.Config, _ *logrus.Logger) (Recognizer, error) {
	return nil, ErrUnavailable
}
