package queue

import (
	"errors"
	"sync"
)

// ErrFinished は終了済みのキューへの追加で返される
var ErrFinished = errors.New("queue: finished, no more jobs accepted")

// Job はキューで受け渡される1件の仕事
type Job struct {
	ID      int    // 識別番号（投入順に採番）
	Payload any    // 任意のデータ
	Fn      func() // 実行本体（nil可）
}

// Stats はキューの統計
type Stats struct {
	Enqueued uint64 // 累計追加数
	Dequeued uint64 // 累計取り出し数
	Waits    uint64 // 条件変数での待機回数
	Pending  int    // 現在の件数
	Finished bool
}

// Queue はミューテックスと条件変数で保護された無制限のFIFOキュー
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	jobs     []Job
	finished bool

	enqueued uint64
	dequeued uint64
	waits    uint64
}

// New は空のキューを作成する
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue はジョブを末尾に追加し、待機中のコンシューマを1つ起こす
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if q.finished {
		q.mu.Unlock()
		return ErrFinished
	}
	q.jobs = append(q.jobs, job)
	q.enqueued++
	q.mu.Unlock()

	q.cond.Signal()
	return nil
}

// Dequeue は先頭のジョブを取り出す。空ならfalseを返し、待機しない
func (q *Queue) Dequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Next は次のジョブを取り出す。キューが空で終了していなければ待機する。
// 終了済みかつ空になったときだけfalseを返す。
// onWait は待機に入る直前にロックを保持したまま呼ばれる（nil可）。
func (q *Queue) Next(onWait func()) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		switch {
		case len(q.jobs) > 0:
			return q.pop()
		case q.finished:
			return Job{}, false
		default:
			q.waits++
			if onWait != nil {
				onWait()
			}
			q.cond.Wait()
		}
	}
}

// pop はロック保持中に呼ぶこと
func (q *Queue) pop() (Job, bool) {
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = Job{}
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		// 先頭側に溜まった容量を解放する
		q.jobs = nil
	}
	q.dequeued++
	return job, true
}

// Finish は以降のジョブがないことを通知し、待機中の全コンシューマを起こす
func (q *Queue) Finish() {
	q.mu.Lock()
	q.finished = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Finished は終了フラグを返す
func (q *Queue) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

// Len は現在のジョブ数を返す
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Stats はキューの統計を返す
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Enqueued: q.enqueued,
		Dequeued: q.dequeued,
		Waits:    q.waits,
		Pending:  len(q.jobs),
		Finished: q.finished,
	}
}
