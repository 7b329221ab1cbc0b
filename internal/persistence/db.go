// Package persistence provides SQLite-based game state storage. A game is
// saved and loaded as one aggregate: the games row plus its tiles, citizens,
// promises, and turns.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mfeldt/ecopolis/internal/game"
)

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		current_turn INTEGER NOT NULL,
		status TEXT NOT NULL,
		rank TEXT NOT NULL,
		defeat_reason TEXT NOT NULL,
		ecology INTEGER NOT NULL,
		economy INTEGER NOT NULL,
		research INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tiles (
		game_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		type TEXT NOT NULL,
		rounds_in_state INTEGER NOT NULL,
		PRIMARY KEY (game_id, x, y)
	);

	CREATE TABLE IF NOT EXISTS citizens (
		game_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		profession TEXT NOT NULL,
		age INTEGER NOT NULL,
		personality TEXT NOT NULL,
		approval INTEGER NOT NULL,
		opening_speech TEXT NOT NULL,
		remaining_turns INTEGER,
		PRIMARY KEY (game_id, name)
	);

	CREATE TABLE IF NOT EXISTS promises (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT NOT NULL,
		text TEXT NOT NULL,
		turn_made INTEGER NOT NULL,
		deadline INTEGER,
		status TEXT NOT NULL,
		target_citizen TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		game_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		speech_text TEXT NOT NULL,
		remaining_actions INTEGER NOT NULL,
		PRIMARY KEY (game_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_tiles_game ON tiles(game_id);
	CREATE INDEX IF NOT EXISTS idx_citizens_game ON citizens(game_id);
	CREATE INDEX IF NOT EXISTS idx_promises_game ON promises(game_id);
	CREATE INDEX IF NOT EXISTS idx_turns_game ON turns(game_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save writes the full aggregate in one transaction, replacing whatever was
// stored for the game before. Either every row lands or none do.
func (db *DB) Save(g *game.Game) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"tiles", "citizens", "promises", "turns"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE game_id = ?", g.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	g.UpdatedAt = time.Now().UTC()
	_, err = tx.Exec(`INSERT OR REPLACE INTO games
		(id, current_turn, status, rank, defeat_reason, ecology, economy, research, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.CurrentTurn, g.Status, g.Rank, g.DefeatReason,
		g.Resources.Ecology, g.Resources.Economy, g.Resources.Research,
		g.CreatedAt.Format(time.RFC3339Nano), g.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO tiles (game_id, x, y, type, rounds_in_state) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range g.Tiles {
		if _, err := stmt.Exec(g.ID, t.X, t.Y, t.Type, t.RoundsInState); err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.X, t.Y, err)
		}
	}

	for _, c := range g.Citizens {
		_, err := tx.Exec(`INSERT INTO citizens
			(game_id, name, kind, profession, age, personality, approval, opening_speech, remaining_turns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, c.Name, c.Kind, c.Profession, c.Age, c.Personality, c.Approval, c.OpeningSpeech, c.RemainingTurns,
		)
		if err != nil {
			return fmt.Errorf("insert citizen %s: %w", c.Name, err)
		}
	}

	for _, p := range g.Promises {
		_, err := tx.Exec(`INSERT INTO promises
			(game_id, text, turn_made, deadline, status, target_citizen)
			VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, p.Text, p.TurnMade, p.Deadline, p.Status, p.TargetCitizen,
		)
		if err != nil {
			return fmt.Errorf("insert promise: %w", err)
		}
	}

	for _, t := range g.Turns {
		_, err := tx.Exec(`INSERT INTO turns
			(game_id, number, speech_text, remaining_actions)
			VALUES (?, ?, ?, ?)`,
			g.ID, t.Number, t.SpeechText, t.RemainingActions,
		)
		if err != nil {
			return fmt.Errorf("insert turn %d: %w", t.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Debug("game saved",
		"game", g.ID, "turn", g.CurrentTurn, "status", g.Status,
		"tiles", len(g.Tiles), "citizens", len(g.Citizens), "promises", len(g.Promises),
	)
	return nil
}

type gameRow struct {
	ID           string `db:"id"`
	CurrentTurn  int    `db:"current_turn"`
	Status       string `db:"status"`
	Rank         string `db:"rank"`
	DefeatReason string `db:"defeat_reason"`
	Ecology      int    `db:"ecology"`
	Economy      int    `db:"economy"`
	Research     int    `db:"research"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

type tileRow struct {
	X             int    `db:"x"`
	Y             int    `db:"y"`
	Type          string `db:"type"`
	RoundsInState int    `db:"rounds_in_state"`
}

type citizenRow struct {
	Name           string `db:"name"`
	Kind           string `db:"kind"`
	Profession     string `db:"profession"`
	Age            int    `db:"age"`
	Personality    string `db:"personality"`
	Approval       int    `db:"approval"`
	OpeningSpeech  string `db:"opening_speech"`
	RemainingTurns *int   `db:"remaining_turns"`
}

type promiseRow struct {
	Text          string `db:"text"`
	TurnMade      int    `db:"turn_made"`
	Deadline      *int   `db:"deadline"`
	Status        string `db:"status"`
	TargetCitizen string `db:"target_citizen"`
}

type turnRow struct {
	Number           int    `db:"number"`
	SpeechText       string `db:"speech_text"`
	RemainingActions int    `db:"remaining_actions"`
}

// Load reads the full aggregate for a game id. Returns game.ErrNotFound if
// no such game exists.
func (db *DB) Load(id string) (*game.Game, error) {
	var gr gameRow
	if err := db.conn.Get(&gr, "SELECT * FROM games WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("load game: %w", err)
	}

	g := &game.Game{
		ID:           gr.ID,
		CurrentTurn:  gr.CurrentTurn,
		Status:       game.Status(gr.Status),
		Rank:         game.Rank(gr.Rank),
		DefeatReason: game.DefeatReason(gr.DefeatReason),
		Resources:    game.Resources{Ecology: gr.Ecology, Economy: gr.Economy, Research: gr.Research},
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339Nano, gr.CreatedAt)
	g.UpdatedAt, _ = time.Parse(time.RFC3339Nano, gr.UpdatedAt)

	var tiles []tileRow
	if err := db.conn.Select(&tiles, "SELECT x, y, type, rounds_in_state FROM tiles WHERE game_id = ? ORDER BY y, x", id); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	for _, r := range tiles {
		g.Tiles = append(g.Tiles, &game.Tile{X: r.X, Y: r.Y, Type: game.TileType(r.Type), RoundsInState: r.RoundsInState})
	}

	var citizens []citizenRow
	if err := db.conn.Select(&citizens, "SELECT name, kind, profession, age, personality, approval, opening_speech, remaining_turns FROM citizens WHERE game_id = ? ORDER BY rowid", id); err != nil {
		return nil, fmt.Errorf("load citizens: %w", err)
	}
	for _, r := range citizens {
		g.Citizens = append(g.Citizens, &game.Citizen{
			Name: r.Name, Kind: game.CitizenKind(r.Kind), Profession: r.Profession,
			Age: r.Age, Personality: r.Personality, Approval: r.Approval,
			OpeningSpeech: r.OpeningSpeech, RemainingTurns: r.RemainingTurns,
		})
	}

	var proms []promiseRow
	if err := db.conn.Select(&proms, "SELECT text, turn_made, deadline, status, target_citizen FROM promises WHERE game_id = ? ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("load promises: %w", err)
	}
	for _, r := range proms {
		g.Promises = append(g.Promises, &game.Promise{
			Text: r.Text, TurnMade: r.TurnMade, Deadline: r.Deadline,
			Status: game.PromiseStatus(r.Status), TargetCitizen: r.TargetCitizen,
		})
	}

	var turns []turnRow
	if err := db.conn.Select(&turns, "SELECT number, speech_text, remaining_actions FROM turns WHERE game_id = ? ORDER BY number", id); err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	for _, r := range turns {
		g.Turns = append(g.Turns, &game.Turn{Number: r.Number, SpeechText: r.SpeechText, RemainingActions: r.RemainingActions})
	}

	return g, nil
}

// Delete removes a game and its rows. Returns game.ErrNotFound if the game
// does not exist.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.ErrNotFound
	}
	for _, table := range []string{"tiles", "citizens", "promises", "turns"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE game_id = ?", id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}
