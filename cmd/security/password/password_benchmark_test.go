package password

import "testing"

func benchmarkHash(b *testing.B, cfg Config) {
	pw := "plum-Harbor-42 under a slow moon"
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cfg.Hash(pw); err != nil {
			b.Fatalf("hash: %v", err)
		}
	}
}

func benchmarkVerify(b *testing.B, cfg Config) {
	pw := "plum-Harbor-42 under a slow moon"
	encoded, err := cfg.Hash(pw)
	if err != nil {
		b.Fatalf("hash: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ok, err := cfg.Verify(encoded, pw)
		if err != nil || !ok {
			b.Fatalf("verify: ok=%v err=%v", ok, err)
		}
	}
}

func BenchmarkHash_Argon2id(b *testing.B) { benchmarkHash(b, DefaultConfig()) }

func BenchmarkVerify_Argon2id(b *testing.B) { benchmarkVerify(b, DefaultConfig()) }

func BenchmarkHash_Bcrypt(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Scheme = SchemeBcrypt
	benchmarkHash(b, cfg)
}

func BenchmarkVerify_Bcrypt(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Scheme = SchemeBcrypt
	benchmarkVerify(b, cfg)
}
