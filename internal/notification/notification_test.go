/*
Copyright 2024 Regio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/regiohub/regio/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slackURL = "https://hooks.slack.test/services/regio"

func TestSlackNotification_PostsBlocks(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		ProjectName:  "Regio",
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: slackURL}},
	})

	var received slackMessage
	httpmock.RegisterResponder(http.MethodPost, slackURL, func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&received))
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	err := SlackNotification(context.Background(), errors.New("database unreachable"))
	require.NoError(t, err)
	require.Len(t, received.Blocks, 3)
	assert.Equal(t, "Error from Regio", received.Blocks[0].Text.Text)
	assert.Contains(t, received.Blocks[1].Fields[0].Text, "database unreachable")
}

func TestSlackNotification_SkippedWithoutURL(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{})
	assert.NoError(t, SlackNotification(context.Background(), errors.New("ignored")))
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNotify_UsesRegisteredSender(t *testing.T) {
	config.MockConfig(&config.Configuration{})
	defer RegisterWebhookSender(nil)

	var event string
	var payload interface{}
	RegisterWebhookSender(func(e string, p interface{}) error {
		event, payload = e, p
		return nil
	})

	notify(errors.New("lock service down"))

	assert.Equal(t, "system.error", event)
	assert.Equal(t, map[string]string{"error": "lock service down"}, payload)
}

func TestNotify_SenderErrorIsLogged(t *testing.T) {
	config.MockConfig(&config.Configuration{})
	defer RegisterWebhookSender(nil)

	called := false
	RegisterWebhookSender(func(string, interface{}) error {
		called = true
		return errors.New("queue full")
	})

	assert.NotPanics(t, func() { notify(errors.New("boom")) })
	assert.True(t, called)
}
