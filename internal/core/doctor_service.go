package core

import (
	"context"

	"go.uber.org/zap"

	"docseek/internal/directory"
)

// Recommendation is the result of DoctorService.FindDoctors. Text is always
// set; Failed marks the upstream error message.
type Recommendation struct {
	Text      string
	Specialty string
	Presence  directory.Presence
	Doctors   []directory.DoctorEntry
	Failed    bool
}

// DoctorService resolves a diagnosis to a specialty and the doctors that
// practise it.
type DoctorService struct {
	dir      *directory.Directory
	selector Selector
	logger   *zap.Logger
}

// NewDoctorService constructs a DoctorService.
func NewDoctorService(dir *directory.Directory, selector Selector, logger *zap.Logger) *DoctorService {
	return &DoctorService{dir: dir, selector: selector, logger: logger}
}

// Directory returns the directory the service resolves against.
func (s *DoctorService) Directory() *directory.Directory { return s.dir }

// FindDoctors validates req, selects a specialty and renders the
// recommendation. Only validation failures are returned as errors; a failed
// selection is logged and rendered as the upstream error message.
func (s *DoctorService) FindDoctors(ctx context.Context, req RecommendationRequest) (Recommendation, error) {
	if err := req.Validate(); err != nil {
		return Recommendation{}, err
	}
	req = req.normalized()

	sel, err := s.selector.Select(ctx, req)
	if err != nil {
		s.logger.Error("specialty selection failed",
			zap.String("diagnosis", req.Diagnosis),
			zap.String("severity", string(req.Severity)),
			zap.Error(err))
		return Recommendation{Text: UpstreamErrorMessage(err), Failed: true}, nil
	}

	res := s.dir.Lookup(sel.Specialty)
	rec := Recommendation{
		Specialty: sel.Specialty,
		Presence:  res.Presence,
		Doctors:   res.Doctors,
	}
	if sel.Text != "" {
		rec.Text = sel.Text
	} else {
		rec.Text = Format(req.Diagnosis, sel.Specialty, res)
	}
	s.logger.Info("doctors found",
		zap.String("specialty", rec.Specialty),
		zap.Stringer("presence", rec.Presence),
		zap.Int("doctors", len(rec.Doctors)))
	return rec, nil
}
