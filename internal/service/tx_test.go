package service

import "context"

type testTxRepos struct {
	sessions  SessionRepository
	messages  MessageRepository
	documents DocumentRepository
	chunks    ChunkRepository
}

func (t *testTxRepos) Sessions() SessionRepository {
	return t.sessions
}

func (t *testTxRepos) Messages() MessageRepository {
	return t.messages
}

func (t *testTxRepos) Documents() DocumentRepository {
	return t.documents
}

func (t *testTxRepos) Chunks() ChunkRepository {
	return t.chunks
}

// testTxRunner runs fn directly against the test repositories and counts
// transactions.
type testTxRunner struct {
	repos TxRepositories
	calls int
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.calls++
	return fn(t.repos)
}
