package recents

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func sampleRecords() []Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return []Record{
		{ID: "r1", Content: "User: hi\n\nAI: hello", UpdatedAt: now},
		{ID: "r2", Content: "User: bye\n\nAI: see you", UpdatedAt: now.Add(-time.Minute)},
	}
}

var _ = Describe("MemoryCache", func() {
	var (
		cache *MemoryCache
		ctx   context.Context
	)

	BeforeEach(func() {
		cache = NewMemoryCache()
		ctx = context.Background()
	})

	It("returns an empty slice for unknown identities", func() {
		records, err := cache.Load(ctx, "nobody")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	It("round-trips a snapshot", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())

		records, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].Content).To(Equal("User: hi\n\nAI: hello"))
	})

	It("replaces the previous snapshot on save", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())
		Expect(cache.Save(ctx, "user-x", sampleRecords()[:1])).To(Succeed())

		records, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
	})

	It("keeps identities isolated", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())

		records, err := cache.Load(ctx, "user-y")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	It("clears a single identity", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())
		Expect(cache.Save(ctx, "user-y", sampleRecords()[:1])).To(Succeed())
		Expect(cache.Clear(ctx, "user-x")).To(Succeed())

		xRecords, _ := cache.Load(ctx, "user-x")
		yRecords, _ := cache.Load(ctx, "user-y")
		Expect(xRecords).To(BeEmpty())
		Expect(yRecords).To(HaveLen(1))
	})

	It("isolates callers from later slice mutation", func() {
		records := sampleRecords()
		Expect(cache.Save(ctx, "user-x", records)).To(Succeed())
		records[0].Content = "mutated"

		loaded, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded[0].Content).To(Equal("User: hi\n\nAI: hello"))
	})
})

var _ = Describe("SQLiteCache", func() {
	var (
		cache *SQLiteCache
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		cache, err = NewSQLiteCache(":memory:", nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if cache != nil {
			cache.Close()
		}
	})

	It("creates the database file on disk", func() {
		tmpDir := GinkgoT().TempDir()
		dbPath := filepath.Join(tmpDir, "recents.db")

		c, err := NewSQLiteCache(dbPath, nil)
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		Expect(c.Save(ctx, "user-x", sampleRecords())).To(Succeed())
		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a snapshot with timestamps intact", func() {
		records := sampleRecords()
		Expect(cache.Save(ctx, "user-x", records)).To(Succeed())

		loaded, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(2))

		byID := map[string]Record{}
		for _, rec := range loaded {
			byID[rec.ID] = rec
		}
		Expect(byID["r1"].Content).To(Equal(records[0].Content))
		Expect(byID["r1"].UpdatedAt.Equal(records[0].UpdatedAt)).To(BeTrue())
	})

	It("replaces the previous snapshot on save", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())
		Expect(cache.Save(ctx, "user-x", nil)).To(Succeed())

		loaded, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeEmpty())
	})

	It("keeps identities isolated", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())

		loaded, err := cache.Load(ctx, "user-y")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeEmpty())
	})

	It("clears a single identity", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())
		Expect(cache.Save(ctx, "user-y", sampleRecords()[:1])).To(Succeed())
		Expect(cache.Clear(ctx, "user-x")).To(Succeed())

		xRecords, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(xRecords).To(BeEmpty())

		yRecords, err := cache.Load(ctx, "user-y")
		Expect(err).NotTo(HaveOccurred())
		Expect(yRecords).To(HaveLen(1))
	})

	It("drops rows with malformed timestamps instead of failing the load", func() {
		Expect(cache.Save(ctx, "user-x", sampleRecords())).To(Succeed())

		// Corrupt one row behind the cache's back.
		_, err := cache.db.Exec(
			`UPDATE recents SET updated_at = 'not-a-time' WHERE identity = ? AND id = ?`,
			"user-x", "r2")
		Expect(err).NotTo(HaveOccurred())

		loaded, err := cache.Load(ctx, "user-x")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(1))
		Expect(loaded[0].ID).To(Equal("r1"))
	})
})
