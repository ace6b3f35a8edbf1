// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"context"

	"github.com/pingcap/failpoint"
	"github.com/secretflow/padflow/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunEpoch counts the starts of one graph. Each start takes the next value,
// so graph nodes can tell which run they belong to.
type RunEpoch struct {
	Model
	ProjectID string `gorm:"column:project_id;type:varchar(64) not null;uniqueIndex:uidx_run_epoch,priority:1"`
	GraphID   string `gorm:"column:graph_id;type:varchar(64) not null;uniqueIndex:uidx_run_epoch,priority:2"`
	Epoch     int64  `gorm:"column:epoch;type:bigint not null;default:0"`
}

// TableName implements schema.Tabler.
func (RunEpoch) TableName() string {
	return "graph_run_epochs"
}

// NextRunEpoch increases the run epoch of a graph by 1 and returns the new
// value. The counter row is created on first use. It is safe to call
// concurrently.
func NextRunEpoch(ctx context.Context, db *gorm.DB, projectID, graphID string) (int64, error) {
	if db == nil {
		return 0, errors.ErrMetaParamsInvalid.GenWithStackByArgs("input db is nil")
	}

	failpoint.InjectContext(ctx, "genEpochDelay", nil)

	var epoch int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Do nothing on conflict
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&RunEpoch{ProjectID: projectID, GraphID: graphID}).Error; err != nil {
			return err
		}
		byGraph := tx.Where("project_id = ? AND graph_id = ?", projectID, graphID)
		if err := byGraph.Session(&gorm.Session{}).Model(&RunEpoch{}).
			Update("epoch", gorm.Expr("epoch + ?", 1)).Error; err != nil {
			return err
		}
		var ep RunEpoch
		if err := byGraph.Session(&gorm.Session{}).First(&ep).Error; err != nil {
			return err
		}
		epoch = ep.Epoch
		return nil
	})
	if err != nil {
		return 0, errors.ErrMetaOpFail.Wrap(err)
	}
	return epoch, nil
}
