package session

// Score counts correct answers per section and in total. It is a pure
// function of its inputs. Every section present in questions appears in
// PerSection, zero or not, and SectionMax holds how many were drawn.
func Score(questions QuestionSet, answers AnswerLookup) ScoreResult {
	res := ScoreResult{PerSection: map[Section]int{}, SectionMax: map[Section]int{}, Max: len(questions)}
	for _, q := range questions {
		if _, ok := res.PerSection[q.Section]; !ok {
			res.PerSection[q.Section] = 0
		}
		res.SectionMax[q.Section]++
		if answers == nil {
			continue
		}
		got, ok := answers.Get(q.ID)
		if !ok || got != q.Correct {
			continue
		}
		res.PerSection[q.Section]++
		res.Total++
	}
	return res
}
