package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"unicode"

	log "github.com/sirupsen/logrus"
)

// DummySubmitter is a Submitter that just logs submissions without
// sending them over the network.
type DummySubmitter struct {
	Logger   *log.Entry
	SensorID string
}

func isASCIIPrintable(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// MakeDummySubmitter creates a new submitter just logging to the default log
// target.
func MakeDummySubmitter() (*DummySubmitter, error) {
	sensorID, err := GetSensorID()
	if err != nil {
		return nil, err
	}
	return &DummySubmitter{
		Logger: log.WithFields(log.Fields{
			"domain":    "submitter",
			"submitter": "dummy",
		}),
		SensorID: sensorID,
	}, nil
}

// UseCompression is a no-op in this implementation.
func (s *DummySubmitter) UseCompression() {}

// Submit logs the rawData payload.
func (s *DummySubmitter) Submit(rawData []byte, key string, contentType string) {
	s.SubmitWithHeaders(rawData, key, contentType, nil)
}

// SubmitWithHeaders logs the rawData payload together with the routing key
// and any extra headers.
func (s *DummySubmitter) SubmitWithHeaders(rawData []byte, key string, contentType string, myHeaders map[string]string) {
	l := s.Logger.WithFields(log.Fields{
		"key":          key,
		"content-type": contentType,
	})
	for k, v := range myHeaders {
		l = l.WithField(k, v)
	}
	if bs := string(rawData); isASCIIPrintable(bs) {
		l.Info(bs)
	} else {
		l.Infof("submitting non-printable byte array of length %d", len(rawData))
	}
}

// Finish is a no-op in this implementation.
func (s *DummySubmitter) Finish() {}
