package beerscot

import (
	"github.com/nlopes/slack"
	"github.com/pkg/errors"
)

// MessageSender is implemented by any value that has the SendAnswer method. It is injected in plugins so
// they can deliver any number of messages (including rich attachments) to a channel outside the
// one-answer-per-action flow. Plugin tests can replace it with a captor
type MessageSender interface {
	// SendAnswer sends the answer's text and attachments to the channel identified by channelID
	SendAnswer(channelID string, a *Answer) (err error)
}

// messageSender is implemented by any value that has the SendMessage method. It is synchronous and returns
// the information identifying the sent message.
//
// slack.Client implements this interface
type messageSender interface {
	SendMessage(channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, rText string, err error)
}

// selfInfoFinder defines the interface for finding our (the beerscot instance) user info.
//
// slack.RTM implements this interface
type selfInfoFinder interface {
	GetInfo() (info *slack.Info)
}

// chatDriver is what the engine needs to deliver answers. It's kept separate from messageSender so
// that the engine's dependencies can grow without changing plugin facing interfaces
type chatDriver interface {
	messageSender
}

// answerSender is the MessageSender implementation injected in plugins. It delivers answers
// with a chatDriver
type answerSender struct {
	driver chatDriver
}

// newAnswerSender returns a MessageSender delivering answers with the given driver
func newAnswerSender(driver chatDriver) (as *answerSender) {
	as = new(answerSender)
	as.driver = driver

	return as
}

// SendAnswer sends the answer to channelID. Threaded replies are only honored when the answer
// includes an explicit thread timestamp since there is no triggering message to thread on
func (as *answerSender) SendAnswer(channelID string, a *Answer) (err error) {
	_, _, err = sendAnswer(as.driver, channelID, a, "")
	return err
}

// sendAnswer sends an answer with the driver. The threadTS is the timestamp of the message the answer
// is replying to, if any
func sendAnswer(driver chatDriver, channelID string, a *Answer, threadTS string) (rChannelID string, rTimestamp string, err error) {
	rChannelID, rTimestamp, _, err = driver.SendMessage(channelID, newSendOptions(a, threadTS)...)
	if err != nil {
		return "", "", errors.Wrapf(err, "error sending message to channel [%s]", channelID)
	}

	return rChannelID, rTimestamp, nil
}

// newSendOptions converts an answer and its options into slack message options
func newSendOptions(a *Answer, threadTS string) (options []slack.MsgOption) {
	sendOpts := ApplyAnswerOpts(a.Options...)

	options = []slack.MsgOption{slack.MsgOptionText(a.Text, false), slack.MsgOptionAsUser(true)}

	if len(a.Attachments) > 0 {
		options = append(options, slack.MsgOptionAttachments(a.Attachments...))
	}

	if sendOpts[ThreadedReplyOpt] == "true" {
		ts := threadTS
		if explicitTS, ok := sendOpts[ThreadTimestamp]; ok {
			ts = explicitTS
		}

		if ts != "" {
			options = append(options, slack.MsgOptionTS(ts))

			if sendOpts[BroadcastOpt] == "true" {
				options = append(options, slack.MsgOptionBroadcast())
			}
		}
	}

	if sendOpts[LinkUnfurlOpt] == "false" {
		options = append(options, slack.MsgOptionDisableLinkUnfurl())
	}

	return options
}
