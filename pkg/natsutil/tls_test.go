/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package natsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLSConfig(t *testing.T) {
	conf, err := TLSConfig(&models.TLSConfig{ServerName: "nats.fleet.local"})
	require.NoError(t, err)
	assert.Equal(t, "nats.fleet.local", conf.ServerName)
	assert.Nil(t, conf.RootCAs)
	assert.Empty(t, conf.Certificates)

	_, err = TLSConfig(&models.TLSConfig{CertFile: "client.pem"})
	require.ErrorIs(t, err, ErrIncompleteKeyPair)

	_, err = TLSConfig(&models.TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))

	_, err = TLSConfig(&models.TLSConfig{CAFile: bad})
	require.ErrorIs(t, err, ErrCAParsingFailed)
}

func TestSecurityOptions(t *testing.T) {
	opts, err := SecurityOptions(&models.StoreConfig{})
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = SecurityOptions(&models.StoreConfig{
		TLS:           &models.TLSConfig{},
		NATSCredsFile: "/etc/fleetradar/nats.creds",
	})
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	_, err = SecurityOptions(&models.StoreConfig{TLS: &models.TLSConfig{KeyFile: "key.pem"}})
	require.ErrorIs(t, err, ErrIncompleteKeyPair)
}
