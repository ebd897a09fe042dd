package gateway

import (
	"coursechat/internal/common"
	"coursechat/internal/dbmysql"
	"coursechat/internal/transport/wire"
)

func toRecord(msg wire.Message) *dbmysql.Message {
	return &dbmysql.Message{
		MessageID:    msg.ID,
		CourseID:     msg.CourseID,
		SenderID:     msg.SenderID,
		SenderName:   msg.SenderName,
		SenderRole:   msg.SenderRole,
		Type:         msg.Type,
		Content:      msg.Content,
		FileURL:      msg.FileURL,
		Filename:     msg.Filename,
		FileSize:     msg.FileSize,
		MimeType:     msg.MimeType,
		DurationMS:   msg.DurationMS,
		Resolution:   msg.Resolution,
		ThumbnailURL: msg.ThumbnailURL,
		CreatedAt:    msg.CreatedAt,
	}
}

func toWire(rec *dbmysql.Message) wire.Message {
	return wire.Message{
		ID:           rec.MessageID,
		CourseID:     rec.CourseID,
		SenderID:     rec.SenderID,
		SenderName:   rec.SenderName,
		SenderRole:   rec.SenderRole,
		Type:         rec.Type,
		Status:       common.StatusSent.String(),
		CreatedAt:    rec.CreatedAt,
		Content:      rec.Content,
		FileURL:      rec.FileURL,
		Filename:     rec.Filename,
		FileSize:     rec.FileSize,
		MimeType:     rec.MimeType,
		DurationMS:   rec.DurationMS,
		Resolution:   rec.Resolution,
		ThumbnailURL: rec.ThumbnailURL,
	}
}

func toWireSlice(recs []*dbmysql.Message) []wire.Message {
	out := make([]wire.Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toWire(rec))
	}
	return out
}
