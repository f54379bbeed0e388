package service

// SessionCount is the number of sessions held in memory.
func (s *Service) SessionCount() int {
	return s.sessions.Len()
}
