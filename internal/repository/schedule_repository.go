// Package repository contains data access logic for voyages, ports and the
// accommodations offered on them.  Rows are shaped into model.ScheduleCard
// values, the server-rendered cards the available trips page is built from.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "fmt"          // fmt builds card ids
    "strconv"      // strconv renders remaining seat counts
    "strings"      // strings builds IN clauses
    "time"         // time parses departure timestamps

    "github.com/iliyamo/harbor-booking/internal/model"
)

// dbTimeLayout is how DATE_FORMAT(..., '%Y-%m-%d %T') renders a DATETIME.
const dbTimeLayout = "2006-01-02 15:04:05"

// ScheduleQuery selects the voyages of one leg.
type ScheduleQuery struct {
    Direction     model.Direction // leg the cards are built for
    OriginID      uint64          // departure port
    DestinationID uint64          // arrival port
    Date          string          // departure date, YYYY-MM-DD
    Passengers    int             // options with fewer remaining seats are hidden
}

// Key identifies the listing q selects, e.g. "outbound:1:2:2025-10-22:3".
func (q ScheduleQuery) Key() string {
    return fmt.Sprintf("%s:%d:%d:%s:%d", q.Direction, q.OriginID, q.DestinationID, q.Date, q.Passengers)
}

// ScheduleRepo reads voyages and their accommodations.
type ScheduleRepo struct {
    db  *sql.DB
    loc *time.Location
}

// NewScheduleRepo returns a repository reading departure times in loc (the
// harbor's local time).  A nil loc means UTC.
func NewScheduleRepo(db *sql.DB, loc *time.Location) *ScheduleRepo {
    if loc == nil {
        loc = time.UTC
    }
    return &ScheduleRepo{db: db, loc: loc}
}

// ListCards returns the scheduled voyages for q ordered by departure.  Each
// voyage becomes one card; its options are the accommodations with enough
// remaining seats, cheapest first.  A voyage with no such accommodation is
// still listed, with no options, so the page can show it as unavailable.
func (r *ScheduleRepo) ListCards(ctx context.Context, q ScheduleQuery) ([]model.ScheduleCard, error) {
    const query = `SELECT
            v.id,
            v.company,
            v.vessel,
            DATE_FORMAT(v.departs_at, '%Y-%m-%d %T') AS departs_at,
            o.name AS origin_name,
            d.name AS destination_name,
            a.name,
            a.seat_type,
            a.aircon,
            CAST(a.price AS CHAR) AS price,
            a.remaining
        FROM voyages v
        JOIN ports o ON o.id = v.origin_port_id
        JOIN ports d ON d.id = v.destination_port_id
        LEFT JOIN accommodations a ON a.voyage_id = v.id AND a.remaining >= ?
        WHERE v.origin_port_id = ? AND v.destination_port_id = ?
          AND DATE(v.departs_at) = ? AND v.status = 'SCHEDULED'
        ORDER BY v.departs_at ASC, v.id ASC, a.price ASC, a.id ASC`

    passengers := q.Passengers
    if passengers < 1 {
        passengers = 1
    }
    rows, err := r.db.QueryContext(ctx, query, passengers, q.OriginID, q.DestinationID, q.Date)
    if err != nil {
        return nil, fmt.Errorf("list voyages: %w", err)
    }
    defer rows.Close()

    var (
        cards []model.ScheduleCard
        index = map[uint64]int{}
    )
    for rows.Next() {
        var (
            voyageID                 uint64
            company, vessel, departs string
            originName, destName     string
            accName, seatType, price sql.NullString
            aircon                   sql.NullBool
            remaining                sql.NullInt64
        )
        if err := rows.Scan(&voyageID, &company, &vessel, &departs, &originName, &destName,
            &accName, &seatType, &aircon, &price, &remaining); err != nil {
            return nil, fmt.Errorf("scan voyage: %w", err)
        }
        i, seen := index[voyageID]
        if !seen {
            cards = append(cards, r.newCard(q.Direction, voyageID, company, vessel, departs, originName, destName))
            i = len(cards) - 1
            index[voyageID] = i
        }
        if !accName.Valid {
            continue
        }
        opt := model.SeatOption{
            Price:    price.String,
            Name:     accName.String,
            SeatType: seatType.String,
            Aircon:   strconv.FormatBool(aircon.Valid && aircon.Bool),
            Label:    accName.String,
        }
        if remaining.Valid {
            opt.Remaining = strconv.FormatInt(remaining.Int64, 10)
        }
        cards[i].Options = append(cards[i].Options, opt)
    }
    if err := rows.Err(); err != nil {
        return nil, fmt.Errorf("iterate voyages: %w", err)
    }
    return cards, nil
}

func (r *ScheduleRepo) newCard(dir model.Direction, id uint64, company, vessel, departs, origin, dest string) model.ScheduleCard {
    c := model.ScheduleCard{
        ID:                fmt.Sprintf("%s-%d", dir, id),
        Direction:         dir,
        Vessel:            vessel,
        Company:           company,
        DepartureDateTime: departs,
        OriginName:        origin,
        DestinationName:   dest,
    }
    // keep the raw string when the timestamp is unexpected; the page treats
    // it as opaque anyway
    if t, err := time.ParseInLocation(dbTimeLayout, departs, r.loc); err == nil {
        c.DepartsAt = t
        c.DepartureDateTime = t.Format("2006-01-02T15:04:05")
        c.DepartureDate = t.Format("Mon, 02 Jan 2006")
        c.DepartureTime = t.Format("3:04 PM")
    }
    return c
}

// PortRepo reads harbor ports.
type PortRepo struct {
    db *sql.DB
}

// NewPortRepo returns a PortRepo on db.
func NewPortRepo(db *sql.DB) *PortRepo { return &PortRepo{db: db} }

// Names maps port ids to display names.  Ids with no row are absent from the
// result.
func (r *PortRepo) Names(ctx context.Context, ids ...uint64) (map[uint64]string, error) {
    out := make(map[uint64]string, len(ids))
    if len(ids) == 0 {
        return out, nil
    }
    marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
    args := make([]any, len(ids))
    for i, id := range ids {
        args[i] = id
    }
    rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM ports WHERE id IN (`+marks+`)`, args...)
    if err != nil {
        return nil, fmt.Errorf("list ports: %w", err)
    }
    defer rows.Close()
    for rows.Next() {
        var (
            id   uint64
            name string
        )
        if err := rows.Scan(&id, &name); err != nil {
            return nil, fmt.Errorf("scan port: %w", err)
        }
        out[id] = name
    }
    return out, rows.Err()
}
