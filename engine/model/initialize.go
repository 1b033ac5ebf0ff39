package model

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
)

func (m *model) Initialize(rec gpu.CommandRecorder) (gpu.CommandRecorder, error) {
	tasks, ok := m.queue.take()
	if !ok {
		return rec, ErrAlreadyInitialized
	}

	start := time.Now()
	for i, task := range tasks {
		staging, err := task.Record(m.device, rec)
		if staging != nil {
			m.staging = append(m.staging, staging)
		}
		if err != nil {
			return rec, fmt.Errorf("initialization task %d (%s): %w", i, task.Label(), err)
		}
		common.Logger().Debug("recorded initialization task", "index", i, "label", task.Label())
	}

	common.Logger().Info("initialization queue drained", "model", m.name,
		"tasks", len(tasks), "staging_buffers", len(m.staging), "elapsed", time.Since(start))
	return rec, nil
}
