package util

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

// Submitter is an interface for an entity that ships serialized reports or
// statistics to an endpoint.
type Submitter interface {
	Submit(rawData []byte, key string, contentType string)
	SubmitWithHeaders(rawData []byte, key string, contentType string, myHeaders map[string]string)
	UseCompression()
	Finish()
}
