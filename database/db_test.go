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

package database

import (
	"sync"
	"testing"

	"github.com/regiohub/regio/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataSource_Memory(t *testing.T) {
	ds, err := NewDataSource(&config.Configuration{DataSource: config.DataSourceConfig{Dns: MemoryDSN}})
	require.NoError(t, err)
	_, ok := ds.(*MemoryDatasource)
	assert.True(t, ok)
}

func TestGetDBConnection_Failure(t *testing.T) {
	instance = nil
	once = sync.Once{}

	_, err := GetDBConnection(&config.Configuration{DataSource: config.DataSourceConfig{Dns: "invalid-dns"}})
	assert.Error(t, err)
	assert.Nil(t, instance)
}

func TestConnectDB_Failure(t *testing.T) {
	db, err := ConnectDB("invalid-dns")
	assert.Error(t, err)
	assert.Nil(t, db)
}
