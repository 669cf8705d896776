package db

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DCSO/mtucorr/types"

	log "github.com/sirupsen/logrus"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

// DefaultReportCollection is the default name of the collection holding
// hourly reports.
const DefaultReportCollection = "reports"

// ReportIndexes are the indexes ensured on the report collection.
var ReportIndexes = []mgo.Index{
	mgo.Index{
		Key:        []string{"datetime"},
		Unique:     true,
		Background: true,
	},
	mgo.Index{
		Key:        []string{"mtu"},
		Background: true,
	},
}

// MongoSlurper is a Slurper that stores reports in a MongoDB database.
// Reports for an hour that is already stored replace the old document.
type MongoSlurper struct {
	User       string
	Password   string
	Host       string
	Database   string
	Collection string
	ChunkSize  int
	Logger     *log.Entry
	done       chan struct{}
}

// MakeMongoSlurper creates a new MongoSlurper instance.
func MakeMongoSlurper(host string, database string, user string, password string,
	collection string, chunkSize int) *MongoSlurper {
	if collection == "" {
		collection = DefaultReportCollection
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	s := &MongoSlurper{
		ChunkSize:  chunkSize,
		Host:       host,
		Database:   database,
		Collection: collection,
		User:       user,
		Password:   password,
		Logger:     log.WithFields(log.Fields{"domain": "slurper", "slurper": "mongo"}),
	}
	s.Logger.WithFields(log.Fields{
		"host":     host,
		"database": database,
	}).Info("preparing for MongoDB connection")
	return s
}

func (s *MongoSlurper) url() string {
	return fmt.Sprintf("mongodb://%s:%s@%s/%s", s.User, s.Password, s.Host, s.Database)
}

func (s *MongoSlurper) worker(reportchan chan types.HourReport) {
	defer close(s.done)
	sess, err := mgo.Dial(s.url())
	if err != nil {
		s.Logger.WithError(err).Error("cannot connect, discarding reports")
		for range reportchan {
		}
		return
	}
	defer sess.Close()
	s.Logger.Info("connection established")
	coll := sess.DB(s.Database).C(s.Collection)
	for _, idx := range ReportIndexes {
		if err := coll.EnsureIndex(idx); err != nil {
			s.Logger.WithFields(log.Fields{"idx": idx.Key}).Warn(err)
		}
	}

	cnt := 0
	b := coll.Bulk()
	b.Unordered()
	flush := func() {
		s.Logger.Debugf("flushing bulk")
		if _, err := b.Run(); err != nil {
			s.Logger.Warn(err)
		} else {
			s.Logger.Debugf("flushing complete")
		}
		b = coll.Bulk()
		b.Unordered()
		cnt = 0
	}
	for report := range reportchan {
		payload, err := json.Marshal(report)
		if err != nil {
			s.Logger.Warn(err)
			continue
		}
		var doc bson.M
		if err := json.Unmarshal(payload, &doc); err != nil {
			s.Logger.Warn(err)
			continue
		}
		b.Upsert(bson.M{"datetime": report.Datetime}, doc)
		cnt++
		if cnt%s.ChunkSize == 0 {
			flush()
		}
	}
	if cnt > 0 {
		flush()
	}
}

// Run starts a MongoSlurper.
func (s *MongoSlurper) Run(ctx context.Context, reportchan chan types.HourReport) {
	s.done = make(chan struct{})
	go s.worker(reportchan)
}

// Finish waits for all pending reports to be written.
func (s *MongoSlurper) Finish() {
	if s.done != nil {
		<-s.done
	}
}
