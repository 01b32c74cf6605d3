package gallery

import "time"

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) SetShuffle(shuffle func(n int, swap func(i, j int))) { s.shuffle = shuffle }
