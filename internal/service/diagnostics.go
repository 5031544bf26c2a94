package service

import (
	"fmt"

	"github.com/noah-isme/sma-exam-scheduler/internal/dto"
	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

// Validate performs the structural checks that fail fast before solving:
// every subject needs at least one candidate slot, and every conflicting
// pair needs at least one common slot to split across. A slot count below
// the subject count is deliberately not an issue — slots hold multiple
// subjects.
func Validate(em *ExamModel, conflicts models.ConflictMap) []string {
	var issues []string

	for _, subject := range em.SubjectNames() {
		if len(em.Vars[subject]) == 0 {
			issues = append(issues, fmt.Sprintf("과목 '%s'에 배정 가능한 슬롯이 없습니다", subject))
		}
	}

	for _, subject := range em.SubjectNames() {
		for _, other := range conflicts[subject] {
			if subject >= other {
				continue
			}
			otherVars, ok := em.Vars[other]
			if !ok {
				continue
			}
			common := false
			for slot := range em.Vars[subject] {
				if _, ok := otherVars[slot]; ok {
					common = true
					break
				}
			}
			if !common && len(em.Vars[subject]) > 0 && len(otherVars) > 0 {
				issues = append(issues,
					fmt.Sprintf("충돌하는 과목 '%s'과 '%s'이 공통 슬롯이 없습니다", subject, other))
			}
		}
	}

	return issues
}

// Diagnose explains a failed solve: subjects with almost no candidate slots,
// subjects whose conflict degree dwarfs the slot count, and generic
// recommendations when nothing specific stands out.
func Diagnose(em *ExamModel, conflicts models.ConflictMap) *dto.Diagnosis {
	diagnosis := &dto.Diagnosis{}

	usedSlots := make(map[string]bool)
	for _, slotVars := range em.Vars {
		for slot := range slotVars {
			usedSlots[slot] = true
		}
	}
	totalSlots := len(usedSlots)
	totalSubjects := len(em.Vars)

	var sparse []string
	for _, subject := range em.SubjectNames() {
		if len(em.Vars[subject]) <= 1 {
			sparse = append(sparse, subject)
		}
	}
	if len(sparse) > 0 {
		diagnosis.PossibleCauses = append(diagnosis.PossibleCauses,
			"일부 과목의 배정 가능한 슬롯이 너무 적습니다")
		diagnosis.Recommendations = append(diagnosis.Recommendations,
			"해당 과목의 시간 제한이나 교사 제약을 완화해보세요")
		diagnosis.ConstraintInfo.SubjectsWithFewSlots = sparse
	}

	var highConflict []string
	for _, subject := range em.SubjectNames() {
		if len(conflicts[subject]) > totalSlots/2 {
			highConflict = append(highConflict, subject)
		}
	}
	if len(highConflict) > 0 {
		diagnosis.PossibleCauses = append(diagnosis.PossibleCauses,
			"충돌이 너무 많은 과목이 있습니다")
		diagnosis.Recommendations = append(diagnosis.Recommendations,
			"충돌 데이터를 검토하고 불필요한 충돌을 제거해보세요")
		diagnosis.ConstraintInfo.HighConflictSubjects = highConflict
	}

	if len(diagnosis.Recommendations) == 0 {
		diagnosis.Recommendations = append(diagnosis.Recommendations,
			"풀이 시간을 늘려보세요",
			"시험 일수나 교시 수를 늘려보세요",
			"과목 간 충돌을 줄여보세요",
			"교사 불가능 시간을 줄여보세요",
		)
	}

	diagnosis.ConstraintInfo.TotalSlots = totalSlots
	diagnosis.ConstraintInfo.TotalSubjects = totalSubjects
	return diagnosis
}
