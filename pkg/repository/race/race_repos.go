package race

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/repository"
)

func Create(conn repository.Querier, race *model.Race) (*model.Race, error) {
	row := conn.QueryRow(context.Background(), `
	insert into race (id, name, status, raw_data_key)
	values ($1,$2,$3,$4)
	returning record_stamp, updated_at
	`, race.ID, race.Name, race.Status, race.RawDataKey)

	if err := row.Scan(&race.RecordStamp, &race.UpdatedAt); err != nil {
		return nil, err
	}

	return race, nil
}

func UpdateStatus(conn repository.Querier, id uuid.UUID, status model.RaceStatus) error {
	_, err := conn.Exec(context.Background(), `
	update race set status=$2, updated_at=now() where id=$1`,
		id, status)

	return err
}

func UpdateLapCount(conn repository.Querier, id uuid.UUID, lapCount int) error {
	_, err := conn.Exec(context.Background(), `
	update race set lap_count=$2, updated_at=now() where id=$1`,
		id, lapCount)

	return err
}

// deletes an entry and its laps from the database, returns number of rows deleted.
func DeleteById(conn repository.Querier, id uuid.UUID) (int, error) {
	cmdTag, err := conn.Exec(context.Background(), "delete from race where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func LoadById(conn repository.Querier, id uuid.UUID) (*model.Race, error) {
	row := conn.QueryRow(context.Background(),
		fmt.Sprintf("%s where id=$1", selector), id)
	var race model.Race
	if err := scan(&race, row); err != nil {
		return nil, err
	}
	return &race, nil
}

func LoadAll(conn repository.Querier) (ret []*model.Race, err error) {
	var rows pgx.Rows
	if rows, err = conn.Query(context.Background(),
		fmt.Sprintf("%s order by record_stamp desc ", selector)); err != nil {
		return nil, err
	}

	ret, err = pgx.CollectRows[*model.Race](rows,
		func(row pgx.CollectableRow) (*model.Race, error) {
			return pgx.RowToAddrOfStructByPos[model.Race](row)
		})
	return ret, err
}

func CreateLap(conn repository.Querier, lap *model.Lap) (*model.Lap, error) {
	row := conn.QueryRow(context.Background(), `
	insert into lap (race_id, lap_number, lap_time, data_key)
	values ($1,$2,$3,$4)
	returning id
	`, lap.RaceID, lap.LapNumber, lap.LapTime, lap.DataKey)

	if err := row.Scan(&lap.ID); err != nil {
		return nil, err
	}

	return lap, nil
}

func LoadLaps(conn repository.Querier, raceID uuid.UUID) (ret []*model.Lap, err error) {
	var rows pgx.Rows
	if rows, err = conn.Query(context.Background(),
		fmt.Sprintf("%s where race_id=$1 order by lap_number asc ", lapSelector),
		raceID); err != nil {
		return nil, err
	}

	ret, err = pgx.CollectRows[*model.Lap](rows,
		func(row pgx.CollectableRow) (*model.Lap, error) {
			return pgx.RowToAddrOfStructByPos[model.Lap](row)
		})
	return ret, err
}

func LoadLapByNumber(
	conn repository.Querier,
	raceID uuid.UUID,
	lapNumber int,
) (*model.Lap, error) {
	row := conn.QueryRow(context.Background(),
		fmt.Sprintf("%s where race_id=$1 and lap_number=$2", lapSelector),
		raceID, lapNumber)
	var lap model.Lap
	if err := row.Scan(&lap.ID, &lap.RaceID, &lap.LapNumber,
		&lap.LapTime, &lap.DataKey); err != nil {
		return nil, err
	}
	return &lap, nil
}

// little helpers
const selector = string(`
select id, name, status, raw_data_key, lap_count, record_stamp, updated_at from race
`)

const lapSelector = string(`
select id, race_id, lap_number, lap_time, data_key from lap
`)

func scan(r *model.Race, row pgx.Row) error {
	return row.Scan(&r.ID, &r.Name, &r.Status, &r.RawDataKey,
		&r.LapCount, &r.RecordStamp, &r.UpdatedAt)
}
