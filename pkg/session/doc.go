/*
Package session serializes concurrent messages of the same conversation.

A conversation's execution is read, advanced and written back as one critical
section. The Manager keeps one reference-counted mutex per active conversation
and can additionally take a distributed lock so several replicas sharing one
store never interleave on the same conversation.
*/
package session
