package db

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// IDGenerator 主键生成器
type IDGenerator interface {
	NextID() (uint64, error)
}

// Snowflake 雪花ID生成器
// [1位符号][41位毫秒时间戳][10位机器ID][12位序列号]
type Snowflake struct {
	mu        sync.Mutex
	now       func() time.Time
	lastMilli int64
	machineID int64
	sequence  int64
}

const (
	machineIDBits  = 10
	sequenceBits   = 12
	maxMachineID   = -1 ^ (-1 << machineIDBits) // 1023
	maxSequence    = -1 ^ (-1 << sequenceBits)  // 4095
	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

// snowflakeEpoch 起始时间 2025-01-01 00:00:00 UTC
var snowflakeEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

var ErrClockMovedBackwards = errors.New("时钟回拨")

// NewSnowflake 创建雪花ID生成器，machineID 范围 0-1023
func NewSnowflake(machineID int64) (*Snowflake, error) {
	return newSnowflakeWithClock(machineID, time.Now)
}

func newSnowflakeWithClock(machineID int64, now func() time.Time) (*Snowflake, error) {
	if machineID < 0 || machineID > maxMachineID {
		return nil, fmt.Errorf("machineID必须在0-%d之间，当前值：%d", maxMachineID, machineID)
	}
	return &Snowflake{now: now, machineID: machineID}, nil
}

// NextID 生成下一个ID
func (s *Snowflake) NextID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms < s.lastMilli {
		return 0, fmt.Errorf("%w：当前 %d < 上次 %d", ErrClockMovedBackwards, ms, s.lastMilli)
	}

	if ms == s.lastMilli {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 当前毫秒序列号用尽
			for ms <= s.lastMilli {
				time.Sleep(100 * time.Microsecond)
				ms = s.now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastMilli = ms

	diff := ms - snowflakeEpoch
	if diff < 0 {
		return 0, errors.New("当前时间早于起始时间")
	}

	id := (diff << timestampShift) | (s.machineID << machineIDShift) | s.sequence
	return uint64(id), nil
}

// SnowflakeTime 解析雪花ID中的时间
func SnowflakeTime(id uint64) time.Time {
	return time.UnixMilli(int64(id>>timestampShift) + snowflakeEpoch)
}

// SnowflakeMachineID 解析雪花ID中的机器ID
func SnowflakeMachineID(id uint64) int64 {
	return int64(id>>machineIDShift) & maxMachineID
}
