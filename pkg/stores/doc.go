// Package stores keeps the history of configuration passes in SQLite.
//
// Every pass run by the CLI can be recorded with its branch state, the
// configurator steps it executed, the task edges it added and the full JSON
// report. The schema is versioned with embedded golang-migrate migrations
// and the database runs in WAL mode so watch mode can write while another
// process reads.
package stores
