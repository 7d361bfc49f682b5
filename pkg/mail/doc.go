// Package mail provides named mail channels: SMTP delivery through gomail
// with retries, an optional background spool, and per-channel message loggers
// that record every message sent so request profiles can report them.
package mail
