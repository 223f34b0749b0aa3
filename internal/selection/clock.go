package selection

import (
	"fmt"
	"time"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// 深夜 0 時ちょうどに終わる勤務の終了時刻
const endOfDay = 24 * 60

// ParseClock は HH:MM（または DB の TIME 型の HH:MM:SS）を 0 時からの分に変換する。
// DB の TIME 型と同じく 24:00 を受け付ける
func ParseClock(s string) (int, error) {
	if s == "24:00" || s == "24:00:00" {
		return endOfDay, nil
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("時刻の形式が正しくありません: %q", s)
}

// FormatClock は DB から読んだ時刻を HH:MM にそろえる。解釈できなければそのまま返す
func FormatClock(s string) string {
	m, err := ParseClock(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Overlaps は同じ日の 2 つの区間 [start1, end1) と [start2, end2) が重なるかを返す。
// 端点が接しているだけの場合は重ならない。
// 日付をまたぐ勤務（終了時刻が開始時刻より前、または「翌」付きの時刻）は扱わず、
// 解釈できない時刻を含む場合は false を返す。
func Overlaps(start1, end1, start2, end2 string) bool {
	s1, err := ParseClock(start1)
	if err != nil {
		return false
	}
	e1, err := ParseClock(end1)
	if err != nil {
		return false
	}
	s2, err := ParseClock(start2)
	if err != nil {
		return false
	}
	e2, err := ParseClock(end2)
	if err != nil {
		return false
	}

	return e1 > s2 && e2 > s1
}
