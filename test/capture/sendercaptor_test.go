package capture_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/test/capture"
	"github.com/stretchr/testify/assert"
)

func TestCaptureByChannel(t *testing.T) {
	ac := capture.NewAnswerCaptor()

	ac.SendAnswer("C1", &beerscot.Answer{Text: "🍻"})
	ac.SendAnswer("C2", &beerscot.Answer{Text: "prost"})
	ac.SendAnswer("C1", &beerscot.Answer{Text: "cheers"})

	sent := ac.SentAnswers()
	assert.Equal(t, map[string][]*beerscot.Answer{
		"C1": {{Text: "🍻"}, {Text: "cheers"}},
		"C2": {{Text: "prost"}},
	}, sent)
}

func TestConcurrentCapture(t *testing.T) {
	ac := capture.NewAnswerCaptor()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ac.SendAnswer("C1", &beerscot.Answer{Text: fmt.Sprintf("toast %d", i)})
		}(i)
	}
	wg.Wait()

	assert.Len(t, ac.SentAnswers()["C1"], 20)
}

func TestSentAnswersIsACopy(t *testing.T) {
	ac := capture.NewAnswerCaptor()
	ac.SendAnswer("C1", &beerscot.Answer{Text: "skol"})

	sent := ac.SentAnswers()
	sent["C1"] = nil

	assert.Len(t, ac.SentAnswers()["C1"], 1)
}
