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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regiohub/regio"
)

func (a Api) GetSystemStats(c *gin.Context) {
	stats, err := a.regio.GetSystemStats(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CollectMonthlyFees runs the monthly fee batch. With ?async=true the run is
// handed to the workers instead and 202 is returned.
func (a Api) CollectMonthlyFees(c *gin.Context) {
	if c.Query("async") == "true" {
		a.enqueueMaintenance(c, regio.TaskMonthlyFee)
		return
	}
	result, err := a.regio.CollectMonthlyFees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProcessDemurrage runs demurrage as of now, or queues it with ?async=true.
func (a Api) ProcessDemurrage(c *gin.Context) {
	if c.Query("async") == "true" {
		a.enqueueMaintenance(c, regio.TaskDemurrage)
		return
	}
	result, err := a.regio.ProcessDemurrage(c.Request.Context(), a.regio.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a Api) enqueueMaintenance(c *gin.Context, taskType string) {
	if err := a.regio.Queue().EnqueueMaintenance(c.Request.Context(), taskType); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": taskType + " queued"})
}
