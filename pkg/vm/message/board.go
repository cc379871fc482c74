// Copyright 2023 OrcaDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package message

import (
	"context"
	"sync"
)

type MessageAddress struct {
	NodeAddr    string
	IsBroadcast bool
}

// AddrBroadCastOnCurrentNode messages stay on the node that produced
// them; the exchange layer is responsible for anything that must
// cross the wire.
func AddrBroadCastOnCurrentNode() MessageAddress {
	return MessageAddress{IsBroadcast: true}
}

type Message interface {
	Serialize() []byte
	Deserialize([]byte) Message
	NeedBlock() bool
	GetMsgTag() int32
	GetReceiverAddr() MessageAddress
}

// MessageBoard is the per-query mailbox operators use to hand values
// to operators of other pipelines on the same node.  Messages are
// append only; the board lives as long as the query.
type MessageBoard struct {
	mu       sync.Mutex
	messages []Message
	waitCh   chan struct{}
}

func NewMessageBoard() *MessageBoard {
	return &MessageBoard{
		waitCh: make(chan struct{}),
	}
}

func SendMessage(m Message, mb *MessageBoard) {
	mb.mu.Lock()
	mb.messages = append(mb.messages, m)
	old := mb.waitCh
	mb.waitCh = make(chan struct{})
	mb.mu.Unlock()
	close(old)
}

type MessageReceiver struct {
	tags   []int32
	addr   MessageAddress
	mb     *MessageBoard
	offset int
}

func NewMessageReceiver(tags []int32, addr MessageAddress, mb *MessageBoard) *MessageReceiver {
	return &MessageReceiver{
		tags: tags,
		addr: addr,
		mb:   mb,
	}
}

func (mr *MessageReceiver) match(m Message) bool {
	tag := m.GetMsgTag()
	for _, t := range mr.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ReceiveMessage returns messages posted since the last call whose tag
// matches.  With blocking set it waits for the next send; a context
// cancellation returns ctxDone=true.
func (mr *MessageReceiver) ReceiveMessage(blocking bool, ctx context.Context) ([]Message, bool, error) {
	for {
		mr.mb.mu.Lock()
		var result []Message
		for ; mr.offset < len(mr.mb.messages); mr.offset++ {
			if mr.match(mr.mb.messages[mr.offset]) {
				result = append(result, mr.mb.messages[mr.offset])
			}
		}
		ch := mr.mb.waitCh
		mr.mb.mu.Unlock()

		if len(result) > 0 || !blocking {
			return result, false, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, true, nil
		}
	}
}
