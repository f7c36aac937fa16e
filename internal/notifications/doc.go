// Package notifications delivers publisher events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Regatta
// announcements (the "tweet" artifact of a finalized regatta) and fatal
// daemon errors are the two event families; each can be switched off
// independently.
package notifications
