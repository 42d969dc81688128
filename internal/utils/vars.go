package utils

const DefaultConcurrency = 10
const DefaultBufferSize = 1024 * 1024 * 8 // 8MB buffer
