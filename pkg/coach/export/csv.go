// Package export renders conversation transcripts for administrators.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"essay-coach-be/internal/entity"
	"essay-coach-be/pkg/timefmt"

	"github.com/google/uuid"
)

const notAvailable = "N/A"

var Header = []string{"date", "time", "role", "content", "word_count", "response_time_seconds"}

// Row is one transcript line. ResponseTime is the whole number of seconds
// since the previous message, or "N/A" for the first one.
type Row struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	WordCount    int    `json:"word_count"`
	ResponseTime string `json:"response_time_seconds"`
}

// Rows expects messages in chronological order.
func Rows(clock *timefmt.Formatter, messages []*entity.Message) []Row {
	rows := make([]Row, 0, len(messages))
	var previous time.Time
	for i, msg := range messages {
		responseTime := notAvailable
		if i > 0 {
			responseTime = strconv.FormatInt(int64(msg.CreatedAt.Sub(previous)/time.Second), 10)
		}
		previous = msg.CreatedAt

		rows = append(rows, Row{
			Date:         clock.Date(msg.CreatedAt),
			Time:         clock.Clock(msg.CreatedAt),
			Role:         msg.Role,
			Content:      msg.Content,
			WordCount:    len(strings.Fields(msg.Content)),
			ResponseTime: responseTime,
		})
	}
	return rows
}

func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{r.Date, r.Time, r.Role, r.Content, strconv.Itoa(r.WordCount), r.ResponseTime}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func FileName(clock *timefmt.Formatter, conversationID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("conversation_%s_%s.csv", conversationID, clock.FileStamp(at))
}
