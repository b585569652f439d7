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

package traces

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

func TestSetupOTelSDK_NoopWithoutExporters(t *testing.T) {
	shutdown, err := SetupOTelSDK(context.Background(), Options{ServiceName: "regio-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupOTelSDK_TracesWithEndpoint(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	shutdown, err := SetupOTelSDK(context.Background(), Options{
		ServiceName: "regio-test",
		Endpoint:    "http://192.0.2.1:4318",
	})
	require.NoError(t, err)

	_, span := otel.Tracer("regio").Start(context.Background(), "noop")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSetupOTelSDK_LogsToWriter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupOTelSDK(context.Background(), Options{
		ServiceName: "regio-test",
		LogWriter:   &buf,
	})
	require.NoError(t, err)

	var record log.Record
	record.SetBody(log.StringValue("posting committed"))
	global.GetLoggerProvider().Logger("regio").Emit(context.Background(), record)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "posting committed")
}
