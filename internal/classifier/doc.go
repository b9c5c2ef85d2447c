// Package classifier detects cats in camera frames.
//
// The engine only sees the Classifier interface. StaticClassifier answers
// with a fixed value, RandomClassifier flips a coin the way a demo camera
// would, and RekognitionClassifier asks AWS Rekognition for a "Cat" label.
package classifier
