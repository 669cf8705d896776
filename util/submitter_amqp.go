package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bytes"
	"sync"
	"time"

	"github.com/NeowayLabs/wabbit"
	"github.com/NeowayLabs/wabbit/amqp"
	"github.com/klauspost/compress/gzip"
	amqp091 "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	amqpReconnDelay = 2 * time.Second
)

// Reconnector obtains a fresh AMQP connection for the given URI, together
// with the exchange type to declare on it.
type Reconnector func(string) (wabbit.Conn, string, error)

// AMQPSubmitter is a Submitter that publishes to a RabbitMQ exchange,
// reconnecting transparently if the connection is lost.
type AMQPSubmitter struct {
	URL              string
	Target           string
	Verbose          bool
	SensorID         string
	Compress         bool
	Conn             wabbit.Conn
	Channel          wabbit.Channel
	ErrorChan        chan wabbit.Error
	StopReconnection chan bool
	ChanMutex        sync.Mutex
	ConnMutex        sync.Mutex
	Reconnector      Reconnector
	Logger           *log.Entry
}

func defaultReconnector(amqpURI string) (wabbit.Conn, string, error) {
	conn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, "fanout", err
	}
	return conn, "fanout", nil
}

func (s *AMQPSubmitter) connect() error {
	s.ConnMutex.Lock()
	defer s.ConnMutex.Unlock()

	conn, exchangeType, err := s.Reconnector(s.URL)
	if err != nil {
		s.Conn = nil
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	err = ch.ExchangeDeclare(s.Target, exchangeType, wabbit.Option{
		"durable":    true,
		"autoDelete": false,
		"internal":   false,
		"noWait":     false,
	})
	if err != nil {
		conn.Close()
		return err
	}
	s.Conn = conn
	s.Channel = ch
	s.Logger.Debugf("established connection to %s", s.URL)
	return nil
}

func (s *AMQPSubmitter) watchConnection() {
	for {
		select {
		case <-s.StopReconnection:
			return
		case rabbitErr := <-s.ErrorChan:
			if rabbitErr == nil {
				continue
			}
			s.Logger.Warnf("RabbitMQ connection failed: %s", rabbitErr.Reason())
			s.ChanMutex.Lock()
			for {
				time.Sleep(amqpReconnDelay)
				if err := s.connect(); err != nil {
					s.Logger.Warnf("RabbitMQ error: %s", err)
					continue
				}
				s.Logger.Infof("reestablished connection to %s", s.URL)
				s.Conn.NotifyClose(s.ErrorChan)
				break
			}
			s.ChanMutex.Unlock()
		}
	}
}

// MakeAMQPSubmitterWithReconnector creates a new submitter connected to a
// RabbitMQ server at the given URL, using the reconnector function to obtain
// connections.
func MakeAMQPSubmitterWithReconnector(url string, target string, verbose bool,
	reconnector Reconnector) (*AMQPSubmitter, error) {
	sensorID, err := GetSensorID()
	if err != nil {
		return nil, err
	}
	s := &AMQPSubmitter{
		URL:              url,
		Target:           target,
		Verbose:          verbose,
		SensorID:         sensorID,
		ErrorChan:        make(chan wabbit.Error),
		StopReconnection: make(chan bool),
		Reconnector:      reconnector,
		Logger: log.WithFields(log.Fields{
			"domain":    "submitter",
			"submitter": "AMQP",
		}),
	}
	if err = s.connect(); err != nil {
		return nil, err
	}
	s.Conn.NotifyClose(s.ErrorChan)
	go s.watchConnection()
	return s, nil
}

// MakeAMQPSubmitter creates a new submitter connected to a RabbitMQ server
// at the given URL.
func MakeAMQPSubmitter(url string, target string, verbose bool) (*AMQPSubmitter, error) {
	return MakeAMQPSubmitterWithReconnector(url, target, verbose, defaultReconnector)
}

// UseCompression enables gzip compression of submitted payloads.
func (s *AMQPSubmitter) UseCompression() {
	s.Compress = true
}

// Submit sends the rawData payload via the registered RabbitMQ connection.
func (s *AMQPSubmitter) Submit(rawData []byte, key string, contentType string) {
	s.SubmitWithHeaders(rawData, key, contentType, nil)
}

// SubmitWithHeaders sends the rawData payload via the registered RabbitMQ
// connection, adding some extra key-value pairs to the header.
func (s *AMQPSubmitter) SubmitWithHeaders(rawData []byte, key string, contentType string, myHeaders map[string]string) {
	payload := rawData
	encoding := ""
	compressed := "false"
	if s.Compress {
		var b bytes.Buffer
		w := gzip.NewWriter(&b)
		w.Write(rawData)
		w.Close()
		payload = b.Bytes()
		encoding = "gzip"
		compressed = "true"
	}

	headers := amqp091.Table{
		"sensor_id":  s.SensorID,
		"compressed": compressed,
	}
	for k, v := range myHeaders {
		headers[k] = v
	}

	s.ChanMutex.Lock()
	err := s.Channel.Publish(s.Target, key, payload, wabbit.Option{
		"contentType":     contentType,
		"contentEncoding": encoding,
		"headers":         headers,
	})
	s.ChanMutex.Unlock()
	if err != nil {
		s.Logger.Warn(err)
		return
	}
	s.Logger.WithFields(log.Fields{
		"rawsize":     len(rawData),
		"payloadsize": len(payload),
	}).Debugf("submission to %s (%s) successful", s.Target, key)
}

// Finish cleans up the AMQP connection.
func (s *AMQPSubmitter) Finish() {
	close(s.StopReconnection)
	if s.Verbose {
		s.Logger.Info("closing connection")
	}
	if s.Channel != nil {
		s.Channel.Close()
	}
	s.ConnMutex.Lock()
	if s.Conn != nil {
		s.Conn.Close()
	}
	s.ConnMutex.Unlock()
}
