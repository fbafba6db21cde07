package main

import "fmt"

type LoopType string

const (
	Report   LoopType = "report"
	Guardian LoopType = "guardian"
	Notary   LoopType = "notary"
	Outbox   LoopType = "outbox"
	Notify   LoopType = "notify"
)

func (t LoopType) String() string {
	return string(t)
}

func AsLoopType(s string) (LoopType, error) {
	switch LoopType(s) {
	case Report, Guardian, Notary, Outbox, Notify:
		return LoopType(s), nil
	default:
		return LoopType(s), fmt.Errorf("unknown loop type: %s (should be one of -- report|guardian|notary|outbox|notify)", s)
	}
}
