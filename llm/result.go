/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package llm

import (
	"errors"

	"github.com/cloudwego/eino/schema"
)

// ErrEmptyResponse is returned by a Generator whose backend answered with no content.
var ErrEmptyResponse = errors.New("empty response from model")

// TextResult is what a Generator returns. The set of variants is closed:
// PlainText and *Envelope.
type TextResult interface {
	textResult()
}

// PlainText is a bare generated string.
type PlainText string

func (PlainText) textResult() {}

// Envelope is a rich response that carries its text in Payload. Message is
// the backend message it was taken from, when there is one.
type Envelope struct {
	Payload string
	Message *schema.Message
}

func (*Envelope) textResult() {}

// NewEnvelope wraps a chat message.
func NewEnvelope(msg *schema.Message) *Envelope {
	if msg == nil {
		return &Envelope{}
	}
	return &Envelope{Payload: msg.Content, Message: msg}
}
