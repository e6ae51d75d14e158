// ABOUTME: Singleton profile row: get-or-create and header field updates.
// ABOUTME: Header updates are a small fixed number, committed immediately.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/hkimport/internal/models"
)

// FindProfile returns the store's profile row, or nil when the store
// has never been imported into.
func (w *Writer) FindProfile() (*models.Profile, error) {
	tx, err := w.begin()
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(`
		SELECT id, locale, export_date, date_of_birth, biological_sex, blood_type, fitzpatrick_skin_type, cardio_fitness_medications_use
		FROM profiles LIMIT 1`)

	var p models.Profile
	var exportDate sql.NullString
	err = row.Scan(&p.ID, &p.Locale, &exportDate, &p.DateOfBirth, &p.BiologicalSex,
		&p.BloodType, &p.FitzpatrickSkinType, &p.CardioFitnessMedicationsUse)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if exportDate.Valid {
		p.ExportDate, err = time.Parse(time.RFC3339Nano, exportDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse export date: %w", err)
		}
	}
	return &p, nil
}

// InsertProfile creates the singleton profile row and commits.
func (w *Writer) InsertProfile(p *models.Profile) error {
	id, err := w.exec(`
		INSERT INTO profiles (locale, export_date, date_of_birth, biological_sex, blood_type, fitzpatrick_skin_type, cardio_fitness_medications_use)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Locale, fmtTime(p.ExportDate), p.DateOfBirth, p.BiologicalSex,
		p.BloodType, p.FitzpatrickSkinType, p.CardioFitnessMedicationsUse,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	p.ID = id
	return w.Commit()
}

// UpdateProfileExportDate records the ExportDate header value.
func (w *Writer) UpdateProfileExportDate(id int64, exportDate time.Time) error {
	tx, err := w.begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE profiles SET export_date = ? WHERE id = ?`, fmtTime(exportDate), id); err != nil {
		return fmt.Errorf("update export date: %w", err)
	}
	return w.Commit()
}

// UpdateProfileTraits records the personal attributes from the Me
// header element.
func (w *Writer) UpdateProfileTraits(p *models.Profile) error {
	tx, err := w.begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		UPDATE profiles
		SET date_of_birth = ?, biological_sex = ?, blood_type = ?, fitzpatrick_skin_type = ?, cardio_fitness_medications_use = ?
		WHERE id = ?`,
		p.DateOfBirth, p.BiologicalSex, p.BloodType, p.FitzpatrickSkinType,
		p.CardioFitnessMedicationsUse, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update profile traits: %w", err)
	}
	return w.Commit()
}
