// Package archive keeps a write-only history of finished rounds in MongoDB.
// Rooms are never restored from it.
package archive

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/avvvet/tombola-service/internal/roomsvc/models"
)

const Collection = "rounds"

type PlayerRecord struct {
	Name    string `bson:"name"`
	Card    []int  `bson:"card"`
	Matched int    `bson:"matched"`
	HasWon  bool   `bson:"has_won"`
}

type Record struct {
	RoomCode  string         `bson:"room_code"`
	RoomName  string         `bson:"room_name"`
	Operator  string         `bson:"operator"`
	Outcome   string         `bson:"outcome"`
	Drawn     []int          `bson:"drawn"`
	Winner    string         `bson:"winner,omitempty"`
	Players   []PlayerRecord `bson:"players"`
	StartedAt time.Time      `bson:"started_at"`
	EndedAt   time.Time      `bson:"ended_at"`
	ExpiresAt time.Time      `bson:"expires_at"`
}

// NewRecord flattens a room snapshot into an archive document.
func NewRecord(room *models.Room, outcome string, now time.Time, retention time.Duration) Record {
	rec := Record{
		RoomCode:  room.Code,
		RoomName:  room.Name,
		Operator:  room.Operator.Email,
		Outcome:   outcome,
		Drawn:     append([]int{}, room.Round.Drawn...),
		Players:   make([]PlayerRecord, 0, len(room.Players)),
		StartedAt: room.Round.StartedAt,
		EndedAt:   now,
		ExpiresAt: now.Add(retention),
	}
	if w := room.Winner(); w != nil {
		rec.Winner = w.Name
	}
	for _, p := range room.Players {
		rec.Players = append(rec.Players, PlayerRecord{
			Name:    p.Name,
			Card:    append([]int{}, p.Card...),
			Matched: p.Matched,
			HasWon:  p.HasWon,
		})
	}
	return rec
}

type MongoArchive struct {
	coll      *mongo.Collection
	retention time.Duration
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewMongoArchive(db *mongo.Database, retention time.Duration) *MongoArchive {
	return &MongoArchive{
		coll:      db.Collection(Collection),
		retention: retention,
		timeout:   5 * time.Second,
	}
}

// Archive writes in the background; the room lock is held by the caller.
func (a *MongoArchive) Archive(room *models.Room, outcome string) {
	rec := NewRecord(room, outcome, time.Now(), a.retention)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.coll.InsertOne(ctx, rec); err != nil {
			log.Errorf("Error archiving round of room %s: %v", rec.RoomCode, err)
			return
		}
		log.Debugf("archived %s round of room %s", outcome, rec.RoomCode)
	}()
}

// Wait blocks until pending writes finish or ctx is done.
func (a *MongoArchive) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("archive writes still pending at shutdown")
	}
}

// Logger stands in when no MongoDB is configured.
type Logger struct{}

func (Logger) Archive(room *models.Room, outcome string) {
	log.Infof("round of room %s ended (%s) after %d numbers", room.Code, outcome, len(room.Round.Drawn))
}
