package domain

import (
	"math"
	"sort"
)

const (
	liverMinOpacity = 0.1
	liverScale      = 18
)

// Percentage returns round(100*score/total) using round-half-up. A non-positive total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}

// RoundedMean returns sum/n rounded half-up, or 0 when n is 0.
func RoundedMean(sum, n int) int {
	if n <= 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}

// NewLiverModel computes the renderer parameters for the given progress.
func NewLiverModel(correct, total int) LiverModel {
	model := LiverModel{Opacity: liverMinOpacity, Scale: liverScale}
	if total <= 0 {
		return model
	}
	model.Progress = float64(correct) / float64(total) * 100
	if correct > 0 {
		model.Revealed = true
		model.Opacity = math.Min(liverMinOpacity+float64(correct)/float64(total)*0.9, 1.0)
	}
	return model
}

// RankByPerformance orders results by percentage desc, most recent first on ties.
func RankByPerformance(results []QuizResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Percentage != results[j].Percentage {
			return results[i].Percentage > results[j].Percentage
		}
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
}

// SortByRecency orders results newest first.
func SortByRecency(results []QuizResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
}

// TopPerformers ranks a copy of results and keeps at most limit rows (all when limit <= 0).
func TopPerformers(results []QuizResult, limit int) []RankedResult {
	ordered := append([]QuizResult(nil), results...)
	RankByPerformance(ordered)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return AssignRanks(ordered)
}

// AssignRanks numbers already-ordered results from 1.
func AssignRanks(ordered []QuizResult) []RankedResult {
	ranked := make([]RankedResult, 0, len(ordered))
	for i, r := range ordered {
		ranked = append(ranked, RankedResult{QuizResult: r, Rank: i + 1})
	}
	return ranked
}

// AggregateGlobal reduces all results into global statistics.
func AggregateGlobal(results []QuizResult) GlobalStats {
	if len(results) == 0 {
		return GlobalStats{}
	}
	var stats GlobalStats
	sum := 0
	users := make(map[string]struct{})
	for _, r := range results {
		stats.TotalAttempts++
		sum += r.Percentage
		if r.Percentage > stats.BestScore {
			stats.BestScore = r.Percentage
		}
		stats.TotalCorrectAnswers += r.Correct
		stats.TotalQuestions += r.Total
		users[r.UserID] = struct{}{}
	}
	stats.TotalUsers = len(users)
	stats.AverageScore = RoundedMean(sum, stats.TotalAttempts)
	perUser := float64(stats.TotalAttempts) / float64(stats.TotalUsers)
	stats.AverageAttemptsPerUser = math.Floor(perUser*100+0.5) / 100
	return stats
}

// AggregateUser reduces one user's results into statistics.
func AggregateUser(results []QuizResult) UserStats {
	var stats UserStats
	sum := 0
	for _, r := range results {
		stats.TotalAttempts++
		sum += r.Percentage
		if r.Percentage > stats.BestScore {
			stats.BestScore = r.Percentage
		}
		stats.TotalCorrectAnswers += r.Correct
		stats.TotalQuestions += r.Total
	}
	stats.AverageScore = RoundedMean(sum, stats.TotalAttempts)
	return stats
}

// ScoreBand is the leaderboard colour tier for a percentage.
type ScoreBand string

const (
	BandExcellent ScoreBand = "excellent"
	BandGood      ScoreBand = "good"
	BandFair      ScoreBand = "fair"
	BandLow       ScoreBand = "low"
)

// BandFor maps a percentage to its tier.
func BandFor(percentage int) ScoreBand {
	switch {
	case percentage >= 90:
		return BandExcellent
	case percentage >= 70:
		return BandGood
	case percentage >= 50:
		return BandFair
	default:
		return BandLow
	}
}

// Medal returns gold, silver or bronze for ranks 1-3 and "" otherwise.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "gold"
	case 2:
		return "silver"
	case 3:
		return "bronze"
	default:
		return ""
	}
}

// FeedbackTier selects the closing message shown when an attempt completes.
type FeedbackTier string

const (
	FeedbackExcellent FeedbackTier = "excellent"
	FeedbackGood      FeedbackTier = "good"
	FeedbackFair      FeedbackTier = "fair"
	FeedbackReview    FeedbackTier = "review"
)

// FeedbackFor uses the 80/60/40 thresholds of the completion screen.
func FeedbackFor(percentage int) FeedbackTier {
	switch {
	case percentage >= 80:
		return FeedbackExcellent
	case percentage >= 60:
		return FeedbackGood
	case percentage >= 40:
		return FeedbackFair
	default:
		return FeedbackReview
	}
}
