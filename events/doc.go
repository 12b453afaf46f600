// Package events sequences registry events and delivers them to subscribers.
//
// Log is the registry's event sink. It assigns every event a sequence number,
// keeps the envelopes in memory for Since queries and forwards them to
// subscribers. LogSink writes envelopes to the process log. Archives
// (S3Archive, FileArchive, IPFSArchive, and MultiArchive over several of
// them) keep envelopes durably and read them back by sequence number.
package events
