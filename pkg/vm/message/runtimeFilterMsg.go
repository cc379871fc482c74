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
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/container/types"
)

const (
	RuntimeFilter_IN          = 0
	RuntimeFilter_BITMAP      = 1
	RuntimeFilter_BLOOMFILTER = 2
	RuntimeFilter_PASS        = 100
	RuntimeFilter_DROP        = 101
)

var _ Message = RuntimeFilterMessage{}

// RuntimeFilterMessage carries a merged runtime filter to consumers
// that do not share memory with the producing pipeline.  Data holds
// the filter encoding packed by EncodeFilterData (lz4 compressed when
// that shrinks it); PASS and DROP carry none.
type RuntimeFilterMessage struct {
	Tag  int32
	Typ  int32
	Card int32
	Data []byte
}

func (rt RuntimeFilterMessage) Serialize() []byte {
	panic("runtime filter message only broadcasts on current node, don't need to serialize")
}

func (rt RuntimeFilterMessage) Deserialize([]byte) Message {
	panic("runtime filter message only broadcasts on current node, don't need to deserialize")
}

func (rt RuntimeFilterMessage) NeedBlock() bool {
	return true
}

func (rt RuntimeFilterMessage) GetMsgTag() int32 {
	return rt.Tag
}

func (rt RuntimeFilterMessage) GetReceiverAddr() MessageAddress {
	return AddrBroadCastOnCurrentNode()
}

func (rt RuntimeFilterMessage) DebugString() string {
	var buf strings.Builder
	buf.WriteString("runtime filter message, tag:" + strconv.Itoa(int(rt.Tag)))
	buf.WriteString(" typ:" + strconv.Itoa(int(rt.Typ)))
	buf.WriteString(" card:" + strconv.Itoa(int(rt.Card)))
	return buf.String()
}

func SendRuntimeFilter(rt RuntimeFilterMessage, mb *MessageBoard) {
	SendMessage(rt, mb)
}

// ReceiveRuntimeFilter blocks until a runtime filter with the tag
// arrives.  Returns nil on context cancellation.
func ReceiveRuntimeFilter(tag int32, mb *MessageBoard, ctx context.Context) (*RuntimeFilterMessage, error) {
	receiver := NewMessageReceiver([]int32{tag}, AddrBroadCastOnCurrentNode(), mb)
	for {
		msgs, ctxDone, err := receiver.ReceiveMessage(true, ctx)
		if err != nil {
			return nil, err
		}
		if ctxDone {
			return nil, nil
		}
		for i := range msgs {
			msg, ok := msgs[i].(RuntimeFilterMessage)
			if !ok {
				panic("expect runtime filter message, receive unknown message!")
			}
			return &msg, nil
		}
	}
}

const (
	filterDataRaw        = 0
	filterDataCompressed = 1
)

// EncodeFilterData compresses a marshaled filter for the message
// board.  Layout: [origLen:u32][flag:u8][payload].  Payloads that do
// not shrink are stored raw.
func EncodeFilterData(raw []byte) []byte {
	origLen := uint32(len(raw))
	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	_, werr := zw.Write(raw)
	cerr := zw.Close()
	if werr != nil || cerr != nil || compressed.Len() >= len(raw) {
		out := make([]byte, 0, 5+len(raw))
		out = append(out, types.EncodeUint32(&origLen)...)
		out = append(out, filterDataRaw)
		return append(out, raw...)
	}
	out := make([]byte, 0, 5+compressed.Len())
	out = append(out, types.EncodeUint32(&origLen)...)
	out = append(out, filterDataCompressed)
	return append(out, compressed.Bytes()...)
}

// DecodeFilterData reverses EncodeFilterData.
func DecodeFilterData(data []byte) ([]byte, error) {
	if len(data) < 5 {
		return nil, moerr.NewInvalidInputNoCtx("short runtime filter payload")
	}
	origLen := int(types.DecodeUint32(data[:4]))
	flag := data[4]
	payload := data[5:]
	switch flag {
	case filterDataRaw:
		if len(payload) != origLen {
			return nil, moerr.NewInvalidInputNoCtx("runtime filter payload length mismatch")
		}
		return payload, nil
	case filterDataCompressed:
		zr := lz4.NewReader(bytes.NewReader(payload))
		dst, err := io.ReadAll(zr)
		if err != nil {
			return nil, moerr.NewInvalidInputNoCtx("decompress runtime filter payload: %v", err)
		}
		if len(dst) != origLen {
			return nil, moerr.NewInvalidInputNoCtx("runtime filter payload length mismatch")
		}
		return dst, nil
	default:
		return nil, moerr.NewInvalidInputNoCtx("unknown runtime filter payload flag %d", flag)
	}
}
