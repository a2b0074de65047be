// Package capture provides captors of the services beerscot injects in plugins so that tests can
// validate what plugins send
package capture

import (
	"sync"

	"github.com/beerscot/beerscot"
)

// AnswerCaptor holds answers sent to it keyed by channel ID. It's safe for concurrent use
type AnswerCaptor struct {
	lock        sync.Mutex
	sentAnswers map[string][]*beerscot.Answer
}

// NewAnswerCaptor returns a new initialized AnswerCaptor instance
func NewAnswerCaptor() (ac *AnswerCaptor) {
	ac = new(AnswerCaptor)
	ac.sentAnswers = make(map[string][]*beerscot.Answer)

	return ac
}

// SendAnswer captures the answer and the channel it's sent to
func (ac *AnswerCaptor) SendAnswer(channelID string, a *beerscot.Answer) (err error) {
	ac.lock.Lock()
	defer ac.lock.Unlock()

	ac.sentAnswers[channelID] = append(ac.sentAnswers[channelID], a)
	return nil
}

// SentAnswers returns a copy of all answers captured so far keyed by channel ID
func (ac *AnswerCaptor) SentAnswers() (sent map[string][]*beerscot.Answer) {
	ac.lock.Lock()
	defer ac.lock.Unlock()

	sent = make(map[string][]*beerscot.Answer)
	for channelID, answers := range ac.sentAnswers {
		sent[channelID] = append([]*beerscot.Answer(nil), answers...)
	}

	return sent
}
